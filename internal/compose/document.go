// Package compose edits the shared docker-compose document one service
// block at a time, leaving every other byte of the file untouched.
//
// The document is never re-serialized through a YAML library. It is split
// into ordered segments using the indentation convention alone: a block
// starts at a line indented by exactly two spaces that holds a single
// "name:" key, inside the top-level services section. Everything else is
// carried verbatim.
package compose

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrBlockNotFound indicates no block with the exact name exists.
	ErrBlockNotFound = errors.New("compose block not found")

	// ErrDuplicateBlock indicates a block with the same name already exists.
	ErrDuplicateBlock = errors.New("compose block already exists")

	// ErrMalformedBlock indicates block text is not exactly one two-space block.
	ErrMalformedBlock = errors.New("malformed compose block")

	// ErrNoServicesSection indicates the document has top-level keys but no
	// services section blocks can be added to.
	ErrNoServicesSection = errors.New("compose document has no services section")
)

var (
	blockKeyPattern = regexp.MustCompile(`^  ([A-Za-z0-9][A-Za-z0-9._-]*):[ \t]*(#.*)?$`)
	topKeyPattern   = regexp.MustCompile(`^([A-Za-z0-9_.-]+):[ \t]*(.*)$`)
)

type segmentKind int

const (
	opaqueSegment segmentKind = iota
	headerSegment
	blockSegment
)

type segment struct {
	kind  segmentKind
	name  string
	lines []string
}

func (s *segment) text() string {
	return strings.Join(s.lines, "")
}

func (s *segment) endsWithNewline() bool {
	return len(s.lines) > 0 && strings.HasSuffix(s.lines[len(s.lines)-1], "\n")
}

func (s *segment) trimFinalNewline() {
	if n := len(s.lines); n > 0 {
		s.lines[n-1] = strings.TrimSuffix(s.lines[n-1], "\n")
	}
}

// Document is a parsed compose document.
type Document struct {
	segments []*segment
	headed   bool
}

// Parse splits content into segments. Parse never fails: text it does not
// recognize is kept as opaque segments, and String returns content unchanged.
func Parse(content string) *Document {
	lines := splitLines(content)
	doc := &Document{}

	for _, line := range lines {
		if isTopLevel(line) {
			doc.headed = true
			break
		}
	}

	inServices := !doc.headed
	var current *segment
	for _, line := range lines {
		switch {
		case isTopLevel(line):
			inServices = isServicesHeader(line)
			kind := opaqueSegment
			if inServices {
				kind = headerSegment
			}
			current = &segment{kind: kind, lines: []string{line}}
			doc.segments = append(doc.segments, current)
		case inServices && blockKeyPattern.MatchString(trimEOL(line)):
			name := blockKeyPattern.FindStringSubmatch(trimEOL(line))[1]
			current = &segment{kind: blockSegment, name: name, lines: []string{line}}
			doc.segments = append(doc.segments, current)
		default:
			if current == nil {
				current = &segment{kind: opaqueSegment}
				doc.segments = append(doc.segments, current)
			}
			current.lines = append(current.lines, line)
		}
	}

	doc.splitTrailing()
	return doc
}

// splitTrailing moves blank and comment lines that close the last block (or
// an empty services header) into their own segment, so insertion lands
// directly after the block content and removal restores the original gap.
func (d *Document) splitTrailing() {
	var out []*segment
	for i, seg := range d.segments {
		out = append(out, seg)
		if seg.kind == opaqueSegment {
			continue
		}
		if i+1 < len(d.segments) && d.segments[i+1].kind == blockSegment {
			continue
		}

		cut := len(seg.lines)
		for cut > 1 && isFiller(seg.lines[cut-1]) {
			cut--
		}
		if cut < len(seg.lines) {
			out = append(out, &segment{kind: opaqueSegment, lines: seg.lines[cut:]})
			seg.lines = seg.lines[:cut]
		}
	}
	d.segments = out
}

// String serializes the document.
func (d *Document) String() string {
	var b strings.Builder
	for _, seg := range d.segments {
		b.WriteString(seg.text())
	}
	return b.String()
}

// Names returns block names in document order.
func (d *Document) Names() []string {
	var names []string
	for _, seg := range d.segments {
		if seg.kind == blockSegment {
			names = append(names, seg.name)
		}
	}
	return names
}

// Has reports whether a block with exactly this name exists.
func (d *Document) Has(name string) bool {
	return d.index(name) >= 0
}

// Block returns the verbatim text of the named block.
func (d *Document) Block(name string) (string, bool) {
	i := d.index(name)
	if i < 0 {
		return "", false
	}
	return d.segments[i].text(), true
}

func (d *Document) index(name string) int {
	for i, seg := range d.segments {
		if seg.kind == blockSegment && seg.name == name {
			return i
		}
	}
	return -1
}

// Insert adds a block after the last block of the services section. text
// must be exactly one block keyed by name with two-space indentation.
// Trailing blank and comment lines in text are dropped.
func (d *Document) Insert(name, text string) error {
	if d.Has(name) {
		return fmt.Errorf("%w: %s", ErrDuplicateBlock, name)
	}

	block, err := parseBlock(name, text)
	if err != nil {
		return err
	}

	at, err := d.insertionPoint()
	if err != nil {
		return err
	}

	// A document without a final line break keeps ending without one.
	if at > 0 {
		prev := d.segments[at-1]
		last := len(prev.lines) - 1
		if last >= 0 && !strings.HasSuffix(prev.lines[last], "\n") {
			prev.lines[last] += "\n"
			block.trimFinalNewline()
		}
	}

	d.segments = append(d.segments, nil)
	copy(d.segments[at+1:], d.segments[at:])
	d.segments[at] = block
	return nil
}

func (d *Document) insertionPoint() (int, error) {
	header := -1
	for i := len(d.segments) - 1; i >= 0; i-- {
		switch d.segments[i].kind {
		case blockSegment:
			return i + 1, nil
		case headerSegment:
			if header < 0 {
				header = i
			}
		}
	}
	if header >= 0 {
		return header + 1, nil
	}
	if d.headed {
		return 0, ErrNoServicesSection
	}

	// Headless document with no blocks: append, keeping trailing filler last.
	at := len(d.segments)
	if at > 0 && allFiller(d.segments[at-1].lines) {
		at--
	}
	return at, nil
}

// Remove deletes the block whose key equals name exactly. Removing the final
// block of a document that ends without a line break drops the line break
// Insert added before it.
func (d *Document) Remove(name string) error {
	i := d.index(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrBlockNotFound, name)
	}
	removed := d.segments[i]
	d.segments = append(d.segments[:i], d.segments[i+1:]...)

	if i > 0 && i == len(d.segments) && !removed.endsWithNewline() {
		d.segments[i-1].trimFinalNewline()
	}
	return nil
}

// InsertBlock returns document with the block added.
func InsertBlock(document, name, text string) (string, error) {
	doc := Parse(document)
	if err := doc.Insert(name, text); err != nil {
		return "", err
	}
	return doc.String(), nil
}

// RemoveBlock returns document with the named block removed.
func RemoveBlock(document, name string) (string, error) {
	doc := Parse(document)
	if err := doc.Remove(name); err != nil {
		return "", err
	}
	return doc.String(), nil
}

func parseBlock(name, text string) (*segment, error) {
	lines := splitLines(text)
	for len(lines) > 0 && isFiller(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: %s: empty block", ErrMalformedBlock, name)
	}
	if !strings.HasSuffix(lines[len(lines)-1], "\n") {
		lines[len(lines)-1] += "\n"
	}

	m := blockKeyPattern.FindStringSubmatch(trimEOL(lines[0]))
	if m == nil {
		return nil, fmt.Errorf("%w: %s: first line must be %q", ErrMalformedBlock, name, "  "+name+":")
	}
	if m[1] != name {
		return nil, fmt.Errorf("%w: block key %q does not match %q", ErrMalformedBlock, m[1], name)
	}

	for _, line := range lines[1:] {
		if isFiller(line) {
			continue
		}
		if indentOf(line) <= 2 {
			return nil, fmt.Errorf("%w: %s: line %q is not nested under the block key", ErrMalformedBlock, name, trimEOL(line))
		}
	}

	return &segment{kind: blockSegment, name: name, lines: lines}, nil
}

func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.SplitAfter(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func trimEOL(line string) string {
	return strings.TrimRight(line, "\r\n")
}

func isFiller(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed == "" || strings.HasPrefix(trimmed, "#")
}

func allFiller(lines []string) bool {
	for _, line := range lines {
		if !isFiller(line) {
			return false
		}
	}
	return true
}

func isTopLevel(line string) bool {
	return !isFiller(line) && indentOf(line) == 0
}

func isServicesHeader(line string) bool {
	m := topKeyPattern.FindStringSubmatch(trimEOL(line))
	if m == nil || m[1] != "services" {
		return false
	}
	rest := strings.TrimSpace(m[2])
	return rest == "" || strings.HasPrefix(rest, "#")
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}
