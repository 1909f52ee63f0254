package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Binary describes an external program a stage shells out to.
type Binary struct {
	Name        string
	Default     string
	Description string
	Optional    bool
}

// The binaries the generation stages rely on.
var (
	FFmpeg     = Binary{Name: "FFmpeg", Default: "ffmpeg", Description: "Required for video previews"}
	Speech     = Binary{Name: "Speech engine", Default: "espeak-ng", Description: "Required for narration audio"}
	FontConfig = Binary{
		Name:        "fontconfig",
		Default:     "fc-match",
		Description: "Resolves the default drawtext font when video.font_file is unset",
		Optional:    true,
	}
)

// Status is the availability of one Binary. Command holds the resolved
// path when the binary was found.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Resolve checks the configured command for b, or b.Default when none is
// configured. Commands containing a path separator must exist and be
// executable; bare names are looked up on PATH.
func (b Binary) Resolve(configured string) Status {
	command := strings.TrimSpace(configured)
	if command == "" {
		command = b.Default
	}
	status := Status{Name: b.Name, Command: command, Description: b.Description, Optional: b.Optional}

	switch {
	case command == "":
		status.Detail = "command not configured"
	case strings.ContainsRune(command, filepath.Separator):
		info, err := os.Stat(command)
		if err != nil || !executable(info) {
			status.Detail = fmt.Sprintf("binary %q is not executable", command)
			break
		}
		status.Available = true
	default:
		resolved, err := exec.LookPath(command)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", command)
			break
		}
		status.Command = resolved
		status.Available = true
	}
	return status
}

// CheckFFmpeg reports the ffmpeg binary used to render previews.
func CheckFFmpeg(configured string) Status { return FFmpeg.Resolve(configured) }

// CheckSpeech reports the text-to-speech engine used for narration.
func CheckSpeech(configured string) Status { return Speech.Resolve(configured) }

func executable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	return runtime.GOOS == "windows" || info.Mode().Perm()&0o111 != 0
}
