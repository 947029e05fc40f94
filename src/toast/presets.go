package toast

import "notify-shell/src/theme"

// Preset is a canned notification.
type Preset struct {
	Name    string     `json:"name"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
	Type    theme.Type `json:"type"`
}

var presets = []Preset{
	{"SaveComplete", "Save Complete", "Your changes have been saved successfully.", theme.Success},
	{"LoadComplete", "Load Complete", "Data loaded successfully.", theme.Success},
	{"ProcessingComplete", "Processing Complete", "Operation completed successfully.", theme.Success},
	{"ErrorOccurred", "Error", "An error occurred during the operation.", theme.Error},
	{"WarningIssue", "Warning", "Please review the following issue.", theme.Warning},
	{"InfoMessage", "Information", "Here's some important information.", theme.Info},
	{"UpdateAvailable", "Update Available", "A new update is available for download.", theme.Info},
	{"BackupComplete", "Backup Complete", "Backup operation completed successfully.", theme.Success},
	{"SyncComplete", "Sync Complete", "Synchronization completed successfully.", theme.Success},
	{"ConnectionLost", "Connection Lost", "Network connection has been lost.", theme.Warning},
}

var fallback = Preset{Name: "Notification", Title: "Notification", Message: "Notification message.", Type: theme.Info}

// Presets lists the canned notifications in display order.
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// LookupPreset finds a preset by name; unknown names get a generic notification.
func LookupPreset(name string) Preset {
	if p, ok := FindPreset(name); ok {
		return p
	}
	return fallback
}

// FindPreset reports whether name is a known preset.
func FindPreset(name string) (Preset, bool) {
	for _, p := range presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}
