package convert

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/h2non/filetype"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"

	"bcbook/archive"
)

type srcEncoding int

const (
	encUnknown srcEncoding = iota
	encUTF8
	encUTF16BigEndian
	encUTF16LittleEndian
	encUTF32BigEndian
	encUTF32LittleEndian
)

func (e srcEncoding) String() string {
	switch e {
	case encUTF8:
		return "utf-8"
	case encUTF16BigEndian:
		return "utf-16be"
	case encUTF16LittleEndian:
		return "utf-16le"
	case encUTF32BigEndian:
		return "utf-32be"
	case encUTF32LittleEndian:
		return "utf-32le"
	default:
		return "unknown"
	}
}

// headSize is enough for both BOM detection and filetype matchers.
const headSize = 262

func isUTF8BOM3(buf []byte) bool {
	return buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF
}

func isUTF16BigEndianBOM2(buf []byte) bool {
	return buf[0] == 0xFE && buf[1] == 0xFF
}

func isUTF16LittleEndianBOM2(buf []byte) bool {
	return buf[0] == 0xFF && buf[1] == 0xFE
}

func isUTF32BigEndianBOM4(buf []byte) bool {
	return buf[0] == 0x00 && buf[1] == 0x00 && buf[2] == 0xFE && buf[3] == 0xFF
}

func isUTF32LittleEndianBOM4(buf []byte) bool {
	return buf[0] == 0xFF && buf[1] == 0xFE && buf[2] == 0x00 && buf[3] == 0x00
}

// detectUTF looks for byte order mark, longer marks are checked first since
// UTF-32LE mark starts with UTF-16LE one.
func detectUTF(buf []byte) srcEncoding {
	if len(buf) >= 4 {
		if isUTF32BigEndianBOM4(buf) {
			return encUTF32BigEndian
		}
		if isUTF32LittleEndianBOM4(buf) {
			return encUTF32LittleEndian
		}
	}
	if len(buf) >= 3 && isUTF8BOM3(buf) {
		return encUTF8
	}
	if len(buf) >= 2 {
		if isUTF16BigEndianBOM2(buf) {
			return encUTF16BigEndian
		}
		if isUTF16LittleEndianBOM2(buf) {
			return encUTF16LittleEndian
		}
	}
	return encUnknown
}

// selectReader returns reader producing UTF-8 text without BOM. When there
// is no BOM and code page was forced, text is converted from it.
func selectReader(r io.Reader, enc srcEncoding, cp encoding.Encoding) io.Reader {
	switch enc {
	case encUnknown:
		if cp != nil {
			return transform.NewReader(r, cp.NewDecoder())
		}
		return r
	case encUTF8:
		return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
	case encUTF16BigEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder())
	case encUTF16LittleEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder())
	case encUTF32BigEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.BigEndian, utf32.ExpectBOM).NewDecoder())
	case encUTF32LittleEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.LittleEndian, utf32.ExpectBOM).NewDecoder())
	default:
		// this should never happen
		panic(fmt.Sprintf("unsupported source encoding %d", enc))
	}
}

// isArchiveFile checks if file is a zip archive.
func isArchiveFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, headSize)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	return filetype.Is(head[:n], "zip"), nil
}

// loadSource reads source file. Source could be a file inside zip archive:
// "[path_to_archive]archive.zip/path_in_archive/file.txt".
func loadSource(src string, cp encoding.Encoding) ([]byte, error) {
	var tail string
	for head := src; len(head) != 0; {
		fi, err := os.Stat(head)
		if err == nil {
			if !fi.Mode().IsRegular() {
				break
			}
			if len(tail) == 0 {
				return os.ReadFile(head)
			}
			arc, err := isArchiveFile(head)
			if err != nil {
				return nil, fmt.Errorf("unable to check archive type: %w", err)
			}
			if !arc {
				break
			}
			return archive.ReadFile(head, filepath.ToSlash(tail), cp)
		}

		dir, file := filepath.Split(head)
		dir = strings.TrimSuffix(dir, string(filepath.Separator))
		if dir == head {
			break
		}
		tail = filepath.Join(file, tail)
		head = dir
	}
	return nil, fmt.Errorf("input source was not found (%s)", src)
}

// readSource reads the whole source text as UTF-8. Sources which are not
// valid UTF-8 are rejected unless code page was forced. Binary signatures are
// only checked for data which cannot be text, plain text may start with
// anything.
func readSource(path string, cp encoding.Encoding) (string, srcEncoding, error) {
	data, err := loadSource(path, cp)
	if err != nil {
		return "", encUnknown, fmt.Errorf("unable to read source: %w", err)
	}

	head := data[:min(len(data), headSize)]
	enc := detectUTF(head)
	if enc == encUnknown {
		invalid := cp == nil && !utf8.Valid(data)
		if invalid || bytes.IndexByte(data, 0) >= 0 {
			if kind, _ := filetype.Match(head); kind != filetype.Unknown {
				return "", enc, fmt.Errorf("source does not look like text (%s)", kind.MIME.Value)
			}
		}
		if invalid {
			return "", enc, errors.New("source is not valid UTF-8, specify its encoding")
		}
	}

	text, err := io.ReadAll(selectReader(bytes.NewReader(data), enc, cp))
	if err != nil {
		return "", enc, fmt.Errorf("unable to decode source (%s): %w", enc, err)
	}
	return string(text), enc, nil
}
