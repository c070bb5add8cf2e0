// Package tokenizer segments text into typed tokens.
//
// # Recognizers
//
// Three kinds of recognizer compete for the text at the cursor:
//
//   - pattern recognizers, regular expressions anchored at the cursor;
//   - callback recognizers, arbitrary functions that may block and see the
//     pattern results of the current step;
//   - dictionary recognizers, which tag a leading word found in a mapping.
//
// Each candidate scores its length in runes plus its weight. The best score
// wins and earlier registration breaks ties. Tags and values of every other
// candidate proposing the same text are merged into the winner. When nothing
// matches, the next rune becomes a token on its own.
//
// # Whitespace
//
// Horizontal whitespace around a token is stored in its Pre and Post fields
// and never forms a token. Line breaks are not whitespace; recognizers such
// as the PARA class in package recognizers claim them.
package tokenizer
