// Package language normalizes the language identifiers that reach the
// caption pipeline. Operators write whatever comes to mind in config files
// ("en", "eng", "english") and WhisperX only accepts ISO 639-1, so every
// identifier is funneled through here before it hits a tool flag.
//
// Parsing rides on golang.org/x/text/language. A small alias table sits in
// front of it for spelled-out names and the bibliographic ISO 639-2/B codes
// that BCP 47 parsers reject.
package language
