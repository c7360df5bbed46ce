// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultPort            = "8080"
	DefaultDBPath          = "radiocat.db"
	DefaultDownloadsDir    = "downloads"
	DefaultProcessedDir    = "processed"
	DefaultGetIPlayerBin   = "get_iplayer"
	DefaultWhisperBin      = "whisper"
	DefaultWhisperModel    = "medium"
	DefaultPollInterval    = 2 * time.Second
	TranscribePollInterval = 10 * time.Second
	DefaultRefreshInterval = 60 * time.Minute
	DefaultDownloadsPerRun = 5
)

// Pagination
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// File extensions get_iplayer is known to produce
const (
	ExtM4A = ".m4a"
	ExtMP3 = ".mp3"
	ExtAAC = ".aac"
)

// File permissions
const (
	DirPermissions  = 0755
	FilePermissions = 0644
)

// Characters to sanitize from filesystem paths
const InvalidPathChars = "<>:\"/\\|?*"
