// Package logging provides structured logging on log/slog.
//
// Every record carries service and version attributes; components get a
// child logger with a component attribute. The backend's own output never
// goes through this logger, it is written straight to the backend log file.
//
// Configuration:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # json, text
//	  output: "stderr"   # stdout, stderr
package logging
