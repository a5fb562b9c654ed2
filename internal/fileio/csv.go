package fileio

import (
	"bufio"
	"encoding/csv"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// readCSV detects the encoding and the delimiter (";" from RU Excel exports,
// "," otherwise). Input that is not UTF-8 is decoded as one of the Cyrillic
// single-byte charsets.
func readCSV(r io.Reader) ([][]string, error) {
	br := bufio.NewReader(r)

	peek, _ := br.Peek(4096)
	var dec io.Reader = br
	if cm := cyrillicCharmap(peek); cm != nil {
		dec = transform.NewReader(br, cm.NewDecoder())
		peek, _ = cm.NewDecoder().Bytes(peek)
	}

	cr := csv.NewReader(dec)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.Comma = detectDelimiter(peek)

	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func detectDelimiter(sample []byte) rune {
	line := string(sample)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if strings.Count(line, ";") > strings.Count(line, ",") {
		return ';'
	}
	return ','
}

// cyrillicCharmap picks the decoder for a non-UTF-8 sample, nil for UTF-8.
// chardet's guess is tried first; short samples are often misdetected, so
// every candidate is scored by how many lowercase Russian letters it yields
// and the best one wins.
func cyrillicCharmap(sample []byte) *charmap.Charmap {
	if len(sample) == 0 || validUTF8(sample) {
		return nil
	}
	candidates := []*charmap.Charmap{charmap.Windows1251, charmap.KOI8R, charmap.ISO8859_5}
	if det, err := chardet.NewTextDetector().DetectBest(sample); err == nil && det != nil {
		if cm, ok := charsets[strings.ToLower(det.Charset)]; ok {
			candidates = append([]*charmap.Charmap{cm}, candidates...)
		}
	}

	best, bestScore := candidates[0], -1
	for _, cm := range candidates {
		decoded, err := cm.NewDecoder().Bytes(sample)
		if err != nil {
			continue
		}
		if score := russianLower(decoded); score > bestScore {
			best, bestScore = cm, score
		}
	}
	return best
}

// validUTF8 tolerates a rune cut at the end of the sample.
func validUTF8(b []byte) bool {
	for i := 0; i < utf8.UTFMax-1 && len(b) > 0 && !utf8.Valid(b); i++ {
		b = b[:len(b)-1]
	}
	return utf8.Valid(b)
}

var charsets = map[string]*charmap.Charmap{
	"windows-1251": charmap.Windows1251,
	"cp1251":       charmap.Windows1251,
	"koi8-r":       charmap.KOI8R,
	"iso-8859-5":   charmap.ISO8859_5,
}

func russianLower(b []byte) int {
	n := 0
	for _, r := range string(b) {
		if (r >= 'а' && r <= 'я') || r == 'ё' {
			n++
		}
	}
	return n
}
