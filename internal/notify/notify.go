// Package notify posts desktop notifications for pipeline results.
package notify

import "github.com/gen2brain/beeep"

const appTitle = "voxnote"

// Ready announces a finished pipeline run. Notification failures are
// ignored; they must never disturb the pipeline.
func Ready(name string) {
	_ = beeep.Notify(appTitle, "「"+name+"」转写完成", "")
}

// Failed announces a failed pipeline stage.
func Failed(message string) {
	_ = beeep.Alert(appTitle, message, "")
}
