// Package ui provides the user-facing surfaces of the desktop shell: the
// window pointed at the backend and the blocking error dialog.
//
// There is no embedded web view. The window is a Chromium-based browser in
// app mode, run as a supervised child so the application notices when the
// window is closed. Without such a browser the URL goes to the platform
// opener (open, xdg-open or rundll32) and closing it cannot be observed.
// Error dialogs use whatever native helper the platform has (osascript,
// zenity, PowerShell) and fall back to writing to the console.
package ui
