package browser

import (
	"os"
	"os/exec"
	"runtime"
)

var chromeCandidates = map[string][]string{
	"windows": {
		"C:\\Program Files (x86)\\Google\\Chrome\\Application\\chrome.exe",
		"C:\\Program Files\\Google\\Chrome\\Application\\chrome.exe",
	},
	"darwin": {
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
	},
	"linux": {
		"chromium-browser",
		"chromium",
		"google-chrome",
		"google-chrome-stable",
		"/usr/bin/chromium-browser",
		"/snap/bin/chromium",
	},
}

// FindChrome on the FS, returns the binary ("" if none found) and a temp dir for profiles
func FindChrome() (string, string) {
	tmp := TempDir()
	if env := os.Getenv("CHROME_PATH"); env != "" {
		return env, tmp
	}
	for _, candidate := range chromeCandidates[runtime.GOOS] {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, tmp
		}
	}
	return "", tmp
}

// TempDir where browser profiles are created
func TempDir() string {
	switch runtime.GOOS {
	case "windows":
		return "C:\\Temp\\gcd\\"
	case "darwin", "linux":
		return "/tmp/gcd/"
	}
	return "tmp"
}
