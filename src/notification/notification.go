// Package notification reports fatal startup problems to a user who may not
// be looking at a terminal.
package notification

import "log"

// ShowBlockingError logs the problem and shows it in a modal OS message box
// where one is available. It returns once the user dismisses it.
func ShowBlockingError(title, message string) {
	log.Printf("%s: %s", title, message)
	if err := showMessageBox(title, message); err != nil {
		log.Printf("Failed to show message box: %v", err)
	}
}
