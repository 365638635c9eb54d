package visstream

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/ahmedkamals/visstream/internal/errors"
	"github.com/mattn/go-shellwords"
)

type (
	// Parser turns a byte stream into commands.
	Parser interface {
		// Next returns the next command. MalformedUnit errors are
		// recoverable, StreamClosed and StreamError are not.
		Next() (Command, error)
	}

	// ParserFactory creates a Parser reading from a stream.
	ParserFactory func(io.Reader) Parser

	// streamParser reads the line oriented visualization stream protocol.
	streamParser struct {
		reader         *bufio.Reader
		fixOrientation bool
		line           int
		// atEnd is set when the last line read was the end marker.
		atEnd bool
	}
)

const (
	endKeyword  = "end"
	maxVertices = 1 << 24
	// rowBatch caps what a count header allocates before its rows arrive.
	rowBatch = 1024
)

// NewStreamParser creates a Parser for the line protocol. With
// fixOrientation, planar elements are reordered counter clockwise.
func NewStreamParser(r io.Reader, fixOrientation bool) Parser {
	return &streamParser{
		reader:         bufio.NewReader(r),
		fixOrientation: fixOrientation,
	}
}

// StreamParserFactory returns a ParserFactory for the line protocol.
func StreamParserFactory(fixOrientation bool) ParserFactory {
	return func(r io.Reader) Parser {
		return NewStreamParser(r, fixOrientation)
	}
}

func (p *streamParser) Next() (Command, error) {
	const op errors.Operation = "streamParser.Next"

	line, err := p.readContent()
	if err != nil {
		return nil, err
	}

	keyword := strings.Fields(line)[0]
	rest := strings.TrimSpace(line[len(keyword):])

	switch keyword {
	case "solution", "mesh":
		cmd, err := p.readData(keyword == "solution")
		// A block cut short may already have consumed its own end marker.
		if err != nil && errors.Is(errors.MalformedUnit, err) && !p.atEnd {
			if skipErr := p.skipUnit(); skipErr != nil {
				return nil, skipErr
			}
		}
		return cmd, err
	case "screenshot":
		path, err := p.text(rest)
		if err != nil || path == "" {
			return nil, p.malformed(op, keyword, err)
		}
		return Screenshot{Path: path}, nil
	case "keys":
		text, err := p.text(rest)
		if err != nil {
			return nil, p.malformed(op, keyword, err)
		}
		return KeySequence{Text: text}, nil
	case "window_title":
		title, err := p.text(rest)
		if err != nil {
			return nil, p.malformed(op, keyword, err)
		}
		return Retitle{Title: title}, nil
	}

	args, err := shellwords.Parse(line)
	if err != nil {
		return nil, p.malformed(op, keyword, err)
	}
	args = args[1:]

	cmd, err := p.parseArgs(keyword, args)
	if err != nil {
		return nil, p.malformed(op, keyword, err)
	}

	return cmd, nil
}

func (p *streamParser) parseArgs(keyword string, args []string) (Command, error) {
	switch keyword {
	case "window_size":
		values, err := ints(args, 2)
		if err != nil {
			return nil, err
		}
		return Resize{Width: values[0], Height: values[1]}, nil
	case "pause":
		if len(args) != 0 {
			return nil, errors.Errorf("expected no arguments, got %d", len(args))
		}
		return Pause{}, nil
	case "view":
		values, err := floats(args, 2)
		if err != nil {
			return nil, err
		}
		return ViewAngles{Theta: values[0], Phi: values[1]}, nil
	case "zoom":
		values, err := floats(args, 1)
		if err != nil {
			return nil, err
		}
		return Zoom{Factor: values[0]}, nil
	case "subdivisions":
		values, err := ints(args, 2)
		if err != nil {
			return nil, err
		}
		return Subdivisions{Total: values[0], Boundary: values[1]}, nil
	case "valuerange":
		values, err := floats(args, 2)
		if err != nil {
			return nil, err
		}
		return ValueRange{Min: values[0], Max: values[1]}, nil
	case "shading":
		if len(args) != 1 {
			return nil, errors.Errorf("expected 1 argument, got %d", len(args))
		}
		return Shading{Mode: args[0]}, nil
	case "viewcenter":
		values, err := floats(args, 2)
		if err != nil {
			return nil, err
		}
		return ViewCenter{X: values[0], Y: values[1]}, nil
	case "autoscale":
		if len(args) != 1 {
			return nil, errors.Errorf("expected 1 argument, got %d", len(args))
		}
		return Autoscale{Mode: args[0]}, nil
	case "palette":
		values, err := ints(args, 1)
		if err != nil {
			return nil, err
		}
		return Palette{Index: values[0]}, nil
	case "camera":
		values, err := floats(args, 9)
		if err != nil {
			return nil, err
		}
		cmd := Camera{}
		copy(cmd.Params[:], values)
		return cmd, nil
	case "autopause":
		if len(args) != 1 {
			return nil, errors.Errorf("expected 1 argument, got %d", len(args))
		}
		return Autopause{Mode: args[0]}, nil
	}

	return nil, errors.Errorf("unknown command")
}

// readData reads a mesh block, an optional field block and the end marker.
func (p *streamParser) readData(withField bool) (Command, error) {
	const op errors.Operation = "streamParser.readData"

	mesh, err := p.readMesh()
	if err != nil {
		return nil, err
	}

	if err := mesh.Validate(); err != nil {
		return nil, errors.E(op, errors.MalformedUnit, err)
	}

	field := &Field{VectorDim: 1, Values: make([]float64, len(mesh.Vertices))}
	if withField {
		if field, err = p.readField(len(mesh.Vertices)); err != nil {
			return nil, err
		}
	}

	if _, err := p.expectKeyword(endKeyword, 0); err != nil {
		return nil, err
	}

	if p.fixOrientation {
		orientElements(mesh)
	}

	return NewMeshAndSolution{Mesh: mesh, Field: field}, nil
}

func (p *streamParser) readMesh() (*Mesh, error) {
	const op errors.Operation = "streamParser.readMesh"

	header, err := p.expectKeyword("dimension", 1)
	if err != nil {
		return nil, err
	}
	dimension, err := strconv.Atoi(header[0])
	if err != nil || dimension < 1 || dimension > 3 {
		return nil, p.malformed(op, "dimension", errors.Errorf("bad dimension %q", header[0]))
	}

	count, err := p.readCount("vertices")
	if err != nil {
		return nil, err
	}

	mesh := &Mesh{
		Dimension: dimension,
		Vertices:  make([][]float64, 0, min(count, rowBatch)),
	}
	for i := 0; i < count; i++ {
		fields, err := p.readFields()
		if err != nil {
			return nil, err
		}
		vertex, err := floats(fields, dimension)
		if err != nil {
			return nil, p.malformed(op, "vertices", err)
		}
		mesh.Vertices = append(mesh.Vertices, vertex)
	}

	count, err = p.readCount("elements")
	if err != nil {
		return nil, err
	}

	mesh.Elements = make([][]int, 0, min(count, rowBatch))
	for i := 0; i < count; i++ {
		fields, err := p.readFields()
		if err != nil {
			return nil, err
		}
		element, err := ints(fields, -1)
		if err != nil {
			return nil, p.malformed(op, "elements", err)
		}
		mesh.Elements = append(mesh.Elements, element)
	}

	return mesh, nil
}

func (p *streamParser) readField(vertices int) (*Field, error) {
	const op errors.Operation = "streamParser.readField"

	header, err := p.expectKeyword("field", 1)
	if err != nil {
		return nil, err
	}
	vectorDim, err := strconv.Atoi(header[0])
	if err != nil || vectorDim < 1 || vectorDim > 3 {
		return nil, p.malformed(op, "field", errors.Errorf("bad vector dimension %q", header[0]))
	}

	field := &Field{
		VectorDim: vectorDim,
		Values:    make([]float64, 0, vertices*vectorDim),
	}
	for i := 0; i < vertices; i++ {
		fields, err := p.readFields()
		if err != nil {
			return nil, err
		}
		values, err := floats(fields, vectorDim)
		if err != nil {
			return nil, p.malformed(op, "field", err)
		}
		field.Values = append(field.Values, values...)
	}

	return field, nil
}

func (p *streamParser) readCount(keyword string) (int, error) {
	const op errors.Operation = "streamParser.readCount"

	header, err := p.expectKeyword(keyword, 1)
	if err != nil {
		return 0, err
	}

	count, err := strconv.Atoi(header[0])
	if err != nil || count < 0 || count > maxVertices {
		return 0, p.malformed(op, keyword, errors.Errorf("bad count %q", header[0]))
	}

	return count, nil
}

// expectKeyword reads a line that must start with keyword followed by
// exactly args fields, which are returned.
func (p *streamParser) expectKeyword(keyword string, args int) ([]string, error) {
	const op errors.Operation = "streamParser.expectKeyword"

	fields, err := p.readFields()
	if err != nil {
		return nil, err
	}

	if fields[0] != keyword || len(fields)-1 != args {
		return nil, p.malformed(op, keyword, errors.Errorf("unexpected %q", strings.Join(fields, " ")))
	}

	return fields[1:], nil
}

func (p *streamParser) readFields() ([]string, error) {
	line, err := p.readContent()
	if err != nil {
		return nil, err
	}

	return strings.Fields(line), nil
}

// skipUnit discards lines up to and including the next end marker.
func (p *streamParser) skipUnit() error {
	for {
		line, err := p.readContent()
		if err != nil {
			return err
		}
		if line == endKeyword {
			return nil
		}
	}
}

// readContent returns the next line that is neither blank nor a comment.
func (p *streamParser) readContent() (string, error) {
	const op errors.Operation = "streamParser.readContent"

	for {
		line, err := p.reader.ReadString('\n')
		if len(line) > 0 {
			p.line++
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "#") {
				p.atEnd = line == endKeyword
				return line, nil
			}
		}

		switch {
		case err == io.EOF:
			return "", errors.E(op, errors.StreamClosed, err)
		case err != nil:
			return "", errors.E(op, errors.StreamError, err)
		}
	}
}

// text returns a free text argument, unquoting it when quoted.
func (p *streamParser) text(rest string) (string, error) {
	if !strings.HasPrefix(rest, `"`) && !strings.HasPrefix(rest, `'`) {
		return rest, nil
	}

	args, err := shellwords.Parse(rest)
	if err != nil {
		return "", err
	}
	if len(args) != 1 {
		return "", errors.Errorf("expected one quoted argument, got %d", len(args))
	}

	return args[0], nil
}

func (p *streamParser) malformed(op errors.Operation, keyword string, err error) error {
	if err == nil {
		err = errors.Errorf("missing argument")
	}

	return errors.E(op, errors.MalformedUnit, errors.Errorf("line %d: %s: %w", p.line, keyword, err))
}

func floats(fields []string, n int) ([]float64, error) {
	if len(fields) != n {
		return nil, errors.Errorf("expected %d numbers, got %d", n, len(fields))
	}

	values := make([]float64, n)
	for i, field := range fields {
		value, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, err
		}
		values[i] = value
	}

	return values, nil
}

// ints parses n integers, or any positive number of them when n is negative.
func ints(fields []string, n int) ([]int, error) {
	if (n >= 0 && len(fields) != n) || (n < 0 && len(fields) == 0) {
		return nil, errors.Errorf("unexpected number of integers: %d", len(fields))
	}

	values := make([]int, len(fields))
	for i, field := range fields {
		value, err := strconv.Atoi(field)
		if err != nil {
			return nil, err
		}
		values[i] = value
	}

	return values, nil
}

// orientElements makes planar polygons counter clockwise.
func orientElements(mesh *Mesh) {
	if mesh.Dimension != 2 {
		return
	}

	for _, element := range mesh.Elements {
		if len(element) < 3 || signedArea(mesh, element) >= 0 {
			continue
		}
		for i, j := 0, len(element)-1; i < j; i, j = i+1, j-1 {
			element[i], element[j] = element[j], element[i]
		}
	}
}

func signedArea(mesh *Mesh, element []int) float64 {
	area := 0.0
	for i, index := range element {
		a := mesh.Vertices[index]
		b := mesh.Vertices[element[(i+1)%len(element)]]
		area += a[0]*b[1] - b[0]*a[1]
	}

	return area / 2
}
