// Package logging contains helpers to print leveled messages using the standard logger.
package logging

import "log"

// PrintlnInfo prints the given message with the INFO level.
func PrintlnInfo(logger *log.Logger, v ...interface{}) {
	logger.Println(append([]interface{}{"INFO:"}, v...)...)
}

// PrintlnWarn prints the given message with the WARN level.
func PrintlnWarn(logger *log.Logger, v ...interface{}) {
	logger.Println(append([]interface{}{"WARN:"}, v...)...)
}

// PrintlnError prints the given message with the ERROR level.
func PrintlnError(logger *log.Logger, v ...interface{}) {
	logger.Println(append([]interface{}{"ERROR:"}, v...)...)
}
