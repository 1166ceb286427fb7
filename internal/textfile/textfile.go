// Package textfile reads text files with encoding fallback and writes them
// back atomically in the same encoding and line-ending convention.
package textfile

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/markis/ai-cli/internal/diff"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

const (
	LF   = "\n"
	CRLF = "\r\n"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// File is a decoded text file. Content always uses "\n" line endings.
type File struct {
	Path       string
	Content    string
	Encoding   string
	LineEnding string
	Mode       os.FileMode

	bom bool
	enc encoding.Encoding
}

// Read loads path, trying UTF-8, UTF-16 with a byte order mark, Windows-1252
// and finally ISO-8859-1, which accepts any byte sequence.
func Read(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	f := &File{Path: path, Mode: info.Mode().Perm()}
	text, err := f.decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	f.LineEnding = DetectLineEnding(text)
	f.Content = diff.NormalizeNewlines(text)
	return f, nil
}

func (f *File) decode(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, utf8BOM) && utf8.Valid(data[len(utf8BOM):]):
		f.Encoding, f.bom = "utf-8", true
		return string(data[len(utf8BOM):]), nil
	case utf8.Valid(data):
		f.Encoding = "utf-8"
		return string(data), nil
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		f.Encoding, f.enc = "utf-16le", unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM)
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		f.Encoding, f.enc = "utf-16be", unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM)
	default:
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err == nil && !bytes.ContainsRune(decoded, utf8.RuneError) {
			f.Encoding, f.enc = "windows-1252", charmap.Windows1252
			return string(decoded), nil
		}
		f.Encoding, f.enc = "iso-8859-1", charmap.ISO8859_1
	}

	decoded, err := f.enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// Encode converts normalized content back to the file's line endings and encoding.
func (f *File) Encode(content string) ([]byte, error) {
	if f.LineEnding == CRLF {
		content = strings.ReplaceAll(content, LF, CRLF)
	}
	if f.enc != nil {
		data, err := f.enc.NewEncoder().Bytes([]byte(content))
		if err != nil {
			return nil, fmt.Errorf("content cannot be represented in %s: %w", f.Encoding, err)
		}
		return data, nil
	}
	if f.bom {
		return append(bytes.Clone(utf8BOM), content...), nil
	}
	return []byte(content), nil
}

// DetectLineEnding returns CRLF when most line breaks in text are CRLF, else LF.
func DetectLineEnding(text string) string {
	lf := strings.Count(text, LF)
	if lf == 0 {
		return LF
	}
	if crlf := strings.Count(text, CRLF); crlf*2 > lf {
		return CRLF
	}
	return LF
}
