// Package layout implements the off-side rule as a post-lexing pass.
//
// A Normalizer reads positioned tokens and injects synthetic tokens so that
// block structure given by column alignment becomes explicit for a parser:
//
//   - implicit levels, opened by kinds in Config.Implicit, produce the
//     Regular indent, dedent and separator kinds;
//   - named blocks, opened by kinds in Config.Blocks, produce their own
//     separator and must be ended by their closer kind.
//
// Every level is anchored to a column chosen by a LevelRule. Tokens at a
// level's column are siblings and get a separator; tokens right of it
// continue the current item; tokens left of it close implicit levels and
// are an error inside a named block.
//
// Layout violations are reported as *Error and end the stream.
package layout
