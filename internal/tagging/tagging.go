// Package tagging writes ID3 metadata into downloaded MP3 files so they
// carry programme information when played outside the pipeline.
package tagging

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"

	"radiocat/internal/constants"
	"radiocat/internal/domain"
)

// TagMP3 writes show metadata into the file at path. Files that are not
// MP3s are skipped without error since id3v2 frames only apply there.
func TagMP3(path string, show *domain.Show) error {
	if !strings.EqualFold(filepath.Ext(path), constants.ExtMP3) {
		return nil
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open id3 tag: %w", err)
	}
	defer tag.Close()

	tag.SetVersion(4)
	tag.SetTitle(episodeTitle(show))
	tag.SetAlbum(show.Title)
	tag.SetArtist("BBC Radio")
	if !show.BroadcastDate.IsZero() {
		tag.SetYear(show.BroadcastDate.Format("2006"))
	}
	if show.Description != "" {
		tag.AddCommentFrame(id3v2.CommentFrame{
			Encoding: tag.DefaultEncoding(),
			Language: "eng",
			Text:     show.Description,
		})
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("save id3 tag: %w", err)
	}
	return nil
}

func episodeTitle(show *domain.Show) string {
	if show.Episode != "" {
		return show.Episode
	}
	return show.Title
}
