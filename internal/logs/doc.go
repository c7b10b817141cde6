// Package logs reads the daemon log file for the CLI.
//
// The daemon appends structured lines to clipforge.log in the configured log
// directory. Tail returns the trailing window with bounded memory, and Follow
// polls for appended lines, restarting from the top when the file shrinks so
// rotation does not strand the reader.
package logs
