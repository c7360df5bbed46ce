package downloader

import (
	"regexp"
	"strconv"
	"strings"
)

// listFormat is passed to get_iplayer --listformat so listings come back in
// a stable pipe-delimited layout instead of the default human format.
const listFormat = "<pid>|<name>|<episode>|<desc>|<channel>|<firstbcast>|<duration>|<categories>|<thumbnail>|<web>"

const listFieldCount = 10

var (
	savedRe    = regexp.MustCompile(`INFO: File\(s\) saved to (.+)`)
	progressRe = regexp.MustCompile(`(\d{1,3}(?:\.\d+)?)%`)
	pidRe      = regexp.MustCompile(`^[a-z0-9]{8,}$`)
)

// ParseListing extracts programmes from pipe-delimited listing output.
// get_iplayer mixes status lines into listings, so anything that does not
// split into the expected fields with a plausible pid is skipped.
func ParseListing(output string) []Programme {
	var programmes []Programme

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, "|")
		if len(fields) != listFieldCount {
			continue
		}
		pid := strings.TrimSpace(fields[0])
		if !pidRe.MatchString(pid) {
			continue
		}

		duration, _ := strconv.Atoi(strings.TrimSpace(fields[6]))

		var categories []string
		for _, c := range strings.Split(fields[7], ",") {
			if c = strings.TrimSpace(c); c != "" {
				categories = append(categories, c)
			}
		}

		programmes = append(programmes, Programme{
			PID:        pid,
			Name:       strings.TrimSpace(fields[1]),
			Episode:    strings.TrimSpace(fields[2]),
			Desc:       strings.TrimSpace(fields[3]),
			Channel:    strings.TrimSpace(fields[4]),
			FirstBcast: strings.TrimSpace(fields[5]),
			Duration:   duration,
			Categories: categories,
			Thumbnail:  strings.TrimSpace(fields[8]),
			Web:        strings.TrimSpace(fields[9]),
		})
	}
	return programmes
}

// ParseOutputPath extracts the saved file path from download output. The
// last "File(s) saved to" line wins since get_iplayer may retry modes.
func ParseOutputPath(output string) (string, bool) {
	matches := savedRe.FindAllStringSubmatch(output, -1)
	if len(matches) == 0 {
		return "", false
	}
	return strings.TrimSpace(matches[len(matches)-1][1]), true
}

// ParseProgress extracts a percentage from a download progress line.
func ParseProgress(line string) (float64, bool) {
	m := progressRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	percent, err := strconv.ParseFloat(m[1], 64)
	if err != nil || percent > 100 {
		return 0, false
	}
	return percent, true
}
