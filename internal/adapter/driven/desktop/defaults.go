package desktop

import "runtime"

const windowsSoundScript = `(New-Object Media.SoundPlayer $env:PRNOTIFY_SOUND).PlaySync()`

const windowsSpeechScript = `Add-Type -AssemblyName System.Speech; (New-Object System.Speech.Synthesis.SpeechSynthesizer).Speak($env:PRNOTIFY_TEXT)`

func powershell(script string) []string {
	return []string{"powershell", "-NoProfile", "-NonInteractive", "-Command", script}
}

// DefaultCommands returns the custom-sound and speech commands for the
// current platform. Toasts use the native alerter, so no toast command is
// set. A sink with no known command on the platform is left empty.
func DefaultCommands() Commands {
	switch runtime.GOOS {
	case "windows":
		return Commands{
			Sound:  powershell(windowsSoundScript),
			Speech: powershell(windowsSpeechScript),
		}
	case "darwin":
		return Commands{
			Sound:  []string{"afplay", "{path}"},
			Speech: []string{"say", "{text}"},
		}
	case "linux":
		return Commands{
			Sound:  []string{"paplay", "{path}"},
			Speech: []string{"spd-say", "--wait", "{text}"},
		}
	default:
		return Commands{}
	}
}
