//go:build js && wasm

package main

import (
	"bytes"
	"encoding/json"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"syscall/js"

	_ "golang.org/x/image/webp"

	"github.com/interiorcollage/collage/internal/engine"
)

var ed *engine.Editor

func main() {
	ed = engine.NewEditor(engine.DefaultOptions())
	ed.OnRedraw(requestRedraw)

	collageEngine := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	collageEngine.Set("addImage", js.FuncOf(addImage))
	collageEngine.Set("apply", js.FuncOf(apply))
	collageEngine.Set("pointerDown", js.FuncOf(pointer(ed.PointerDown)))
	collageEngine.Set("pointerMove", js.FuncOf(pointer(ed.PointerMove)))
	collageEngine.Set("pointerUp", js.FuncOf(pointer(ed.PointerUp)))
	collageEngine.Set("keyDown", js.FuncOf(keyDown))
	collageEngine.Set("pump", js.FuncOf(pump))

	// --- Queries (frontend ← engine) ---
	collageEngine.Set("render", js.FuncOf(render))
	collageEngine.Set("hitTest", js.FuncOf(hitTest))
	collageEngine.Set("getPanel", js.FuncOf(getPanel))
	collageEngine.Set("getState", js.FuncOf(getState))
	collageEngine.Set("getBitmap", js.FuncOf(getBitmap))
	collageEngine.Set("exportPNG", js.FuncOf(exportPNG))

	js.Global().Set("collageEngine", collageEngine)
	js.Global().Set("collageWasmReady", js.ValueOf(true))

	select {}
}

func requestRedraw() {
	if fn := js.Global().Get("collageRequestRedraw"); fn.Type() == js.TypeFunction {
		fn.Invoke()
	}
}

func errorResult(err error) any {
	return js.ValueOf(map[string]any{"error": err.Error()})
}

func ok() any {
	return js.ValueOf(map[string]any{"ok": true})
}

// --- Command Handlers ---

// addImage(bytes: Uint8Array, name?: string) decodes an image fetched by
// the page and adds it as a layer.
func addImage(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf(map[string]any{"error": "missing image bytes"})
	}
	data := make([]byte, args[0].Get("length").Int())
	js.CopyBytesToGo(data, args[0])

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return errorResult(err)
	}
	var name string
	if len(args) > 1 && args[1].Type() == js.TypeString {
		name = args[1].String()
	}
	l, err := ed.AddImage(img, name)
	if err != nil {
		return errorResult(err)
	}
	return js.ValueOf(map[string]any{"ok": true, "layerId": l.ID})
}

// apply(commandJSON) runs any engine.Command.
func apply(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf(map[string]any{"error": "missing command JSON"})
	}
	var cmd engine.Command
	if err := json.Unmarshal([]byte(args[0].String()), &cmd); err != nil {
		return errorResult(err)
	}
	if err := ed.Apply(cmd); err != nil {
		return errorResult(err)
	}
	return ok()
}

func pointer(fn func(x, y float64)) func(js.Value, []js.Value) any {
	return func(this js.Value, args []js.Value) any {
		if len(args) < 2 {
			return nil
		}
		fn(args[0].Float(), args[1].Float())
		ed.Pump()
		return nil
	}
}

func keyDown(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf(false)
	}
	var k engine.Key
	if err := json.Unmarshal([]byte(args[0].String()), &k); err != nil {
		return js.ValueOf(false)
	}
	consumed := ed.KeyDown(k)
	ed.Pump()
	return js.ValueOf(consumed)
}

func pump(this js.Value, args []js.Value) any {
	return js.ValueOf(ed.Pump())
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) any {
	return js.ValueOf(ed.Render())
}

func hitTest(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return js.ValueOf("")
	}
	return js.ValueOf(ed.HitTest(args[0].Float(), args[1].Float()))
}

func getPanel(this js.Value, args []js.Value) any {
	data, err := json.Marshal(ed.Panel())
	if err != nil {
		return js.ValueOf("[]")
	}
	return js.ValueOf(string(data))
}

func getState(this js.Value, args []js.Value) any {
	st := ed.State()
	return js.ValueOf(map[string]any{
		"mode":       string(st.Mode),
		"indicator":  ed.Indicator(),
		"selectedId": st.SelectedID,
		"canUndo":    ed.History().CanUndo(),
		"canRedo":    ed.History().CanRedo(),
	})
}

// getBitmap(ref) returns the encoded bytes of a bitmap named by a draw
// command or panel row, or null.
func getBitmap(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.Null()
	}
	data, _, err := ed.EncodedBitmap(args[0].String())
	if err != nil {
		return js.Null()
	}
	return toUint8Array(data)
}

func exportPNG(this js.Value, args []js.Value) any {
	data, err := ed.ExportPNG()
	if err != nil {
		return errorResult(err)
	}
	return toUint8Array(data)
}

func toUint8Array(data []byte) js.Value {
	arr := js.Global().Get("Uint8Array").New(len(data))
	js.CopyBytesToJS(arr, data)
	return arr
}
