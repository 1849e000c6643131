//go:build js && wasm

package main

import (
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/jun/markpad/core/convert"
	"github.com/jun/markpad/core/editor"
	"github.com/jun/markpad/core/markdown"
	"github.com/jun/markpad/core/plugin"
	"github.com/jun/markpad/core/plugin/builtin"
	"github.com/jun/markpad/core/sync"
)

func main() {
	registry := plugin.NewRegistry(plugin.WithErrorHandler(func(event string, err error) {
		fmt.Println("markpad:", event, err)
	}))
	if err := builtin.Register(registry); err != nil {
		fmt.Println("markpad: plugins:", err)
	}
	offline := sync.NewQueue()

	// renderMarkdown(source) -> html
	export("renderMarkdown", 1, func(args []js.Value) any {
		out, err := builtin.NewRenderer(registry).Render([]byte(args[0].String()))
		if err != nil {
			return "Error: " + err.Error()
		}
		return string(out)
	})

	// formatText(text, anchor, head, action, options) -> {ok, text, anchor, head}
	// Offsets are UTF-16 code units, as used by browser text APIs.
	export("formatText", 4, func(args []js.Value) any {
		text := args[0].String()
		state := editor.State{
			Text: text,
			Selection: editor.Selection{
				Anchor: editor.FromUTF16(text, args[1].Int()),
				Head:   editor.FromUTF16(text, args[2].Int()),
			},
		}
		action := editor.Action(args[3].String())

		var override editor.Options
		if len(args) > 4 && args[4].Type() == js.TypeObject {
			raw := js.Global().Get("JSON").Call("stringify", args[4]).String()
			if err := json.Unmarshal([]byte(raw), &override); err != nil {
				return map[string]any{"ok": false, "error": err.Error()}
			}
		}
		opts, err := builtin.ActionOptions(registry, action, override)
		if err != nil {
			return map[string]any{"ok": false, "error": err.Error()}
		}

		next, ok := editor.FormatText(state, action, opts)
		return map[string]any{
			"ok":     ok,
			"text":   next.Text,
			"anchor": editor.ToUTF16(next.Text, next.Selection.Anchor),
			"head":   editor.ToUTF16(next.Text, next.Selection.Head),
		}
	})

	// isDiagramLanguage(tag) -> bool
	export("isDiagramLanguage", 1, func(args []js.Value) any {
		return markdown.IsDiagramLanguage(args[0].String())
	})

	// previewDiagram(marker, source) -> html
	export("previewDiagram", 2, func(args []js.Value) any {
		out, err := builtin.Preview(registry, args[0].String(), args[1].String())
		if err != nil {
			return "Error: " + err.Error()
		}
		return out
	})

	// htmlToMarkdown(html) -> markdown
	export("htmlToMarkdown", 1, func(args []js.Value) any {
		out, err := convert.FromHTML(args[0].String())
		if err != nil {
			return "Error: " + err.Error()
		}
		return out
	})

	// exportHTML(source, title) -> html page
	export("exportHTML", 2, func(args []js.Value) any {
		exp, cfg, err := builtin.Exporter(registry, "html")
		if err != nil {
			return "Error: " + err.Error()
		}
		out, err := exp.Export(args[1].String(), []byte(args[0].String()), cfg)
		if err != nil {
			return "Error: " + err.Error()
		}
		return string(out)
	})

	// complete(trigger, prefix) -> [{label, insert, detail}]
	export("complete", 2, func(args []js.Value) any {
		var out []any
		for _, s := range builtin.Complete(registry, args[0].String(), args[1].String()) {
			out = append(out, map[string]any{"label": s.Label, "insert": s.Insert, "detail": s.Detail})
		}
		return out
	})

	// shortcuts() -> {keys: action}
	export("shortcuts", 0, func([]js.Value) any {
		out := map[string]any{}
		for keys, action := range builtin.Shortcuts(registry) {
			out[keys] = string(action)
		}
		return out
	})

	// checkConflict(localEtag, remoteEtag) -> bool
	export("checkConflict", 2, func(args []js.Value) any {
		return sync.CheckConflict(args[0].String(), args[1].String())
	})

	// queueOfflineChange(documentId, content) -> pending count
	export("queueOfflineChange", 2, func(args []js.Value) any {
		text := args[1].String()
		offline.Add(sync.NewOfflineChange(args[0].String(), text, editor.Cursor(len(text))))
		return offline.Len()
	})

	// drainOfflineChanges() -> [{documentId, content, timestamp}]
	export("drainOfflineChanges", 0, func([]js.Value) any {
		var out []any
		for _, c := range offline.Drain() {
			out = append(out, map[string]any{
				"documentId": c.DocumentID,
				"content":    c.Content,
				"timestamp":  c.Timestamp,
			})
		}
		return out
	})

	// listPlugins() -> [{id, name, kind, enabled}]
	export("listPlugins", 0, func([]js.Value) any {
		var out []any
		for _, rec := range registry.List() {
			out = append(out, map[string]any{
				"id":      rec.ID(),
				"name":    rec.Plugin.Name,
				"kind":    rec.Kind().String(),
				"enabled": rec.Enabled,
			})
		}
		return out
	})

	// setPluginEnabled(id, enabled) -> error message or ""
	export("setPluginEnabled", 2, func(args []js.Value) any {
		var err error
		if args[1].Bool() {
			err = registry.Enable(args[0].String())
		} else {
			err = registry.Disable(args[0].String())
		}
		if err != nil {
			return err.Error()
		}
		return ""
	})

	fmt.Println("markpad core wasm initialized")

	// Returning would exit the Wasm module.
	select {}
}

// export installs fn as a global function that requires at least minArgs
// arguments.
func export(name string, minArgs int, fn func(args []js.Value) any) {
	js.Global().Set(name, js.FuncOf(func(this js.Value, args []js.Value) any {
		return invoke(name, minArgs, fn, args)
	}))
}

// invoke runs fn, turning a short argument list or a panic (a js.Value of
// the wrong type, say) into an error string so the module keeps running.
func invoke(name string, minArgs int, fn func(args []js.Value) any, args []js.Value) (out any) {
	if len(args) < minArgs {
		return "Error: " + name + " needs " + fmt.Sprint(minArgs) + " arguments"
	}
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf("Error: %s: %v", name, r)
		}
	}()
	return fn(args)
}
