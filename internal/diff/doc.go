// Package diff computes line-based change hunks between an original text and a
// suggested replacement.
//
// Lines keep their trailing newline so that concatenating them reproduces the
// input byte for byte. A final line without a newline is therefore distinct
// from the same text with one, and a change to the end-of-file newline shows
// up as a regular hunk.
//
// # Usage
//
//	hunks, err := diff.ComputeHunks(diff.SplitLines(old), diff.SplitLines(new), diff.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	for i, h := range hunks {
//	    fmt.Println(i+1, h.Original, h.Modified)
//	}
package diff
