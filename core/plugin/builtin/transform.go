package builtin

import (
	"bytes"

	"github.com/jun/markpad/core/plugin"
)

type trimOptions struct {
	KeepHardBreaks bool `mapstructure:"keep_hard_breaks"`
}

func trimTrailingSpace() plugin.Plugin {
	return plugin.Plugin{
		ID:          IDTrimTrailing,
		Name:        "Trim trailing whitespace",
		Description: "Strips trailing spaces and tabs outside code fences",
		Payload: plugin.Transform{Apply: func(src []byte, cfg plugin.Config) ([]byte, error) {
			var o trimOptions
			if err := plugin.DecodeConfig(cfg, &o); err != nil {
				return nil, err
			}
			return TrimTrailingSpace(src, o.KeepHardBreaks), nil
		}},
		DefaultConfig:  plugin.Config{"keep_hard_breaks": true},
		ValidateConfig: plugin.Validator[trimOptions](nil),
	}
}

// TrimTrailingSpace removes trailing blanks from every line outside fenced
// code. With keepHardBreaks a line ending in two or more spaces keeps
// exactly two, which Markdown reads as a line break.
func TrimTrailingSpace(src []byte, keepHardBreaks bool) []byte {
	lines := bytes.SplitAfter(src, []byte("\n"))
	var out bytes.Buffer
	out.Grow(len(src))
	var fence []byte
	for _, line := range lines {
		body := bytes.TrimRight(line, "\r\n")
		eol := line[len(body):]
		trimmed := bytes.TrimLeft(body, " ")

		if fence != nil {
			if bytes.HasPrefix(trimmed, fence) && len(bytes.TrimSpace(trimmed[len(fence):])) == 0 {
				fence = nil
			}
			out.Write(line)
			continue
		}
		if f := fenceOpener(trimmed); f != nil {
			fence = f
			out.Write(line)
			continue
		}

		stripped := bytes.TrimRight(body, " \t")
		out.Write(stripped)
		if keepHardBreaks && len(stripped) > 0 && len(body)-len(stripped) >= 2 && bytes.HasSuffix(body, []byte("  ")) {
			out.WriteString("  ")
		}
		out.Write(eol)
	}
	return out.Bytes()
}

// fenceOpener returns the fence that closes the block opened by line.
func fenceOpener(line []byte) []byte {
	for _, c := range []byte{'`', '~'} {
		n := 0
		for n < len(line) && line[n] == c {
			n++
		}
		if n >= 3 {
			return bytes.Repeat([]byte{c}, n)
		}
	}
	return nil
}
