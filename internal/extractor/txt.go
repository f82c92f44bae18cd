package extractor

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ExtractTXT treats a plain-text upload as a document. Form feeds are taken
// as page breaks; a file without them is a single page.
func ExtractTXT(data []byte) (*Result, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty text file")
	}

	text, err := decodeText(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode text file: %w", err)
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\x00", "")

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no text could be extracted from file")
	}

	result := &Result{}
	total := 0
	for i, pageText := range strings.Split(text, "\f") {
		result.Pages = append(result.Pages, capPage(i+1, pageText, &total, result))
		if total >= MaxDocumentText {
			result.Truncated = true
			break
		}
	}
	result.PageCount = len(result.Pages)

	return result, nil
}

func decodeText(data []byte) (string, error) {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return string(data[3:]), nil
	}

	if len(data) >= 2 && data[0] == 0xFF && data[1] == 0xFE {
		decoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		decoded, _, err := transform.Bytes(decoder, data)
		if err != nil {
			return "", err
		}
		return string(decoded), nil
	}

	if len(data) >= 2 && data[0] == 0xFE && data[1] == 0xFF {
		decoder := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
		decoded, _, err := transform.Bytes(decoder, data)
		if err != nil {
			return "", err
		}
		return string(decoded), nil
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	decoder := charmap.Windows1252.NewDecoder()
	if decoded, _, err := transform.Bytes(decoder, data); err == nil {
		return string(decoded), nil
	}

	decoder = charmap.ISO8859_1.NewDecoder()
	if decoded, _, err := transform.Bytes(decoder, data); err == nil {
		return string(decoded), nil
	}

	return string(data), nil
}
