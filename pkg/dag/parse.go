package dag

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Parse reads a line-oriented DAG specification:
//
//	input a
//	input b
//	node c
//	output d
//	depends c : a b
//	depends d : c
//
// "input"/"node"/"output" declare a node; "depends TO : FROM..." records
// that TO cannot be pebbled unless every node in FROM is pebbled (TO's
// children, in the pebbling sense). Blank lines and lines starting with "#" are
// ignored. Declarations must precede any "depends" line that references
// them.
func Parse(r io.Reader) (*Graph, error) {
	g := New()
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		switch fields[0] {
		case "input":
			if len(fields) != 2 {
				return nil, fmt.Errorf("dag: line %d: expected %q <name>", line, "input")
			}
			g.AddInput(fields[1])
		case "node":
			if len(fields) != 2 {
				return nil, fmt.Errorf("dag: line %d: expected %q <name>", line, "node")
			}
			g.AddNode(fields[1])
		case "output":
			if len(fields) != 2 {
				return nil, fmt.Errorf("dag: line %d: expected %q <name>", line, "output")
			}
			g.AddOutput(fields[1])
		case "depends":
			to, from, err := parseDepends(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("dag: line %d: %w", line, err)
			}
			if err := g.AddEdgesTo(from, to); err != nil {
				return nil, fmt.Errorf("dag: line %d: %w", line, err)
			}
		default:
			return nil, fmt.Errorf("dag: line %d: unknown directive %q", line, fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return g, nil
}

func parseDepends(fields []string) (to string, from []string, err error) {
	if len(fields) < 2 || fields[1] != ":" {
		return "", nil, fmt.Errorf("expected <node> : <child>...")
	}
	return fields[0], fields[2:], nil
}
