package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// createTestImageFile creates a test image file and returns its path
func createTestImageFile(t *testing.T, width, height int, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return writePNG(t, img)
}

// createSmearFile writes a white image with black filled rectangles (cells).
func createSmearFile(t *testing.T, width, height int, cells ...image.Rectangle) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	for _, r := range cells {
		draw.Draw(img, r, image.NewUniform(color.Black), image.Point{}, draw.Src)
	}
	return writePNG(t, img)
}

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// callTool runs a tools/call request and returns the response.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()

	paramsJSON, err := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	req := &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: paramsJSON}

	resp := s.handleRequest(context.Background(), req)
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeToolText unmarshals the JSON text content of a successful tool response.
func decodeToolText(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("Expected one content block, got %v", result["content"])
	}
	if content[0]["type"] != "text" {
		t.Fatalf("content type: got %v, want text", content[0]["type"])
	}
	text, _ := content[0]["text"].(string)
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("decode tool text: %v", err)
	}
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := New(Options{})
	imgPath := createTestImageFile(t, 100, 80, color.RGBA{255, 0, 0, 255})

	var info struct {
		Width  int    `json:"width"`
		Height int    `json:"height"`
		Format string `json:"format"`
	}
	decodeToolText(t, callTool(t, s, "image_load", map[string]interface{}{"path": imgPath}), &info)

	if info.Width != 100 || info.Height != 80 {
		t.Errorf("dimensions: got %dx%d, want 100x80", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("format: got %s, want png", info.Format)
	}
	if s.cache.Len() != 1 {
		t.Errorf("cache size: got %d, want 1", s.cache.Len())
	}
}

func TestHandleToolsCall_ImageLoad_Reload(t *testing.T) {
	s := New(Options{})
	imgPath := createTestImageFile(t, 10, 10, color.White)

	callTool(t, s, "image_load", map[string]interface{}{"path": imgPath})

	// Replace the file; a plain load still sees the cached copy.
	if err := os.Remove(imgPath); err != nil {
		t.Fatal(err)
	}
	bigger := image.NewRGBA(image.Rect(0, 0, 30, 20))
	f, err := os.Create(imgPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, bigger); err != nil {
		t.Fatal(err)
	}
	f.Close()

	var dims struct {
		Width int `json:"width"`
	}
	decodeToolText(t, callTool(t, s, "image_dimensions", map[string]interface{}{"path": imgPath}), &dims)
	if dims.Width != 10 {
		t.Errorf("cached width: got %d, want 10", dims.Width)
	}

	decodeToolText(t, callTool(t, s, "image_load", map[string]interface{}{"path": imgPath, "reload": true}), &dims)
	if dims.Width != 30 {
		t.Errorf("reloaded width: got %d, want 30", dims.Width)
	}
}

func TestHandleToolsCall_ImageDimensions(t *testing.T) {
	s := New(Options{})
	imgPath := createTestImageFile(t, 200, 150, color.RGBA{0, 255, 0, 255})

	var dims struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	decodeToolText(t, callTool(t, s, "image_dimensions", map[string]interface{}{"path": imgPath}), &dims)

	if dims.Width != 200 || dims.Height != 150 {
		t.Errorf("dimensions: got %dx%d, want 200x150", dims.Width, dims.Height)
	}
}

func TestHandleToolsCall_NonExistentFile(t *testing.T) {
	s := New(Options{})

	resp := callTool(t, s, "image_load", map[string]interface{}{"path": "/nonexistent/image.png"})

	if resp.Error == nil {
		t.Fatal("Expected error for non-existent file")
	}
	if resp.Error.Code != -32000 {
		t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
	}
}

func TestHandleToolsCall_InvalidTool(t *testing.T) {
	s := New(Options{})

	resp := callTool(t, s, "nonexistent_tool", map[string]interface{}{})

	if resp.Error == nil {
		t.Fatal("Expected error for unknown tool")
	}
	if resp.Error.Code != -32602 {
		t.Errorf("Error code: got %d, want -32602", resp.Error.Code)
	}
}

func TestHandleToolsCall_MissingPath(t *testing.T) {
	s := New(Options{})

	for _, tool := range []string{"image_load", "image_dimensions", "image_crop", "cell_classify", "cell_stages", "cell_crop"} {
		t.Run(tool, func(t *testing.T) {
			resp := callTool(t, s, tool, map[string]interface{}{})
			if resp.Error == nil {
				t.Fatal("Expected error for missing path")
			}
			if resp.Error.Code != -32602 {
				t.Errorf("Error code: got %d, want -32602", resp.Error.Code)
			}
		})
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := New(Options{})

	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Params:  json.RawMessage(`{invalid json`),
	}

	resp := s.handleToolsCall(context.Background(), req)

	if resp.Error == nil {
		t.Fatal("Expected error for invalid params")
	}
	if resp.Error.Code != -32602 {
		t.Errorf("Error code: got %d, want -32602", resp.Error.Code)
	}
}

func TestHandleToolsCall_Crop(t *testing.T) {
	s := New(Options{})
	imgPath := createTestImageFile(t, 100, 100, color.RGBA{0, 0, 255, 255})

	var crop struct {
		Width       int    `json:"width"`
		Height      int    `json:"height"`
		ImageBase64 string `json:"image_base64"`
	}
	resp := callTool(t, s, "image_crop", map[string]interface{}{
		"path": imgPath, "x1": 10, "y1": 20, "x2": 50, "y2": 40, "scale": 2.0,
	})
	decodeToolText(t, resp, &crop)

	if crop.Width != 80 || crop.Height != 40 {
		t.Errorf("crop size: got %dx%d, want 80x40", crop.Width, crop.Height)
	}
	if crop.ImageBase64 == "" {
		t.Error("Expected base64 image data")
	}
}

func TestHandleToolsCall_SampleColor(t *testing.T) {
	s := New(Options{})
	imgPath := createTestImageFile(t, 20, 20, color.RGBA{255, 0, 0, 255})

	var sample struct {
		Hex string `json:"hex"`
	}
	decodeToolText(t, callTool(t, s, "image_sample_color", map[string]interface{}{"path": imgPath, "x": 5, "y": 5}), &sample)
	if sample.Hex != "#ff0000" {
		t.Errorf("hex: got %s, want #ff0000", sample.Hex)
	}

	resp := callTool(t, s, "image_sample_color", map[string]interface{}{"path": imgPath, "x": 50, "y": 5})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("Expected -32602 for out of bounds point, got %+v", resp.Error)
	}
}

// classifyResponse mirrors the fields of classifyResult checked by tests.
type classifyResponse struct {
	Sickle   int      `json:"sickle"`
	Normal   int      `json:"normal"`
	Boundary int      `json:"boundary"`
	Ratio    *float64 `json:"ratio"`
	Status   string   `json:"status"`
	Message  string   `json:"message"`
	Cells    []struct {
		Index  int    `json:"index"`
		Class  string `json:"class"`
		Bounds struct {
			X      int `json:"x"`
			Y      int `json:"y"`
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"bounds"`
	} `json:"cells"`
	OutputPath string `json:"output_path"`
	Image      *struct {
		Width       int    `json:"width"`
		ImageBase64 string `json:"image_base64"`
		MimeType    string `json:"mime_type"`
	} `json:"image"`
}

func TestHandleToolsCall_CellClassify(t *testing.T) {
	s := New(Options{})
	imgPath := createSmearFile(t, 80, 60, image.Rect(10, 10, 20, 50), image.Rect(40, 15, 60, 35))

	var res classifyResponse
	decodeToolText(t, callTool(t, s, "cell_classify", map[string]interface{}{"path": imgPath}), &res)

	if res.Sickle != 1 || res.Normal != 1 {
		t.Errorf("counts: got sickle=%d normal=%d, want 1/1", res.Sickle, res.Normal)
	}
	if res.Ratio == nil || *res.Ratio != 1 {
		t.Errorf("ratio: got %v, want 1", res.Ratio)
	}
	if res.Status != "ok" {
		t.Errorf("status: got %s, want ok", res.Status)
	}
	if len(res.Cells) != 2 {
		t.Fatalf("cells: got %d, want 2", len(res.Cells))
	}
	if res.Cells[0].Class != "sickle" || res.Cells[0].Bounds.X != 9 || res.Cells[0].Bounds.Height != 41 {
		t.Errorf("first cell: got %+v", res.Cells[0])
	}
	if res.Image != nil {
		t.Error("Image should be omitted unless requested")
	}
}

func TestHandleToolsCall_CellClassify_NoNormalCells(t *testing.T) {
	s := New(Options{})
	imgPath := createSmearFile(t, 40, 60, image.Rect(15, 10, 25, 50))

	var res classifyResponse
	decodeToolText(t, callTool(t, s, "cell_classify", map[string]interface{}{"path": imgPath}), &res)

	if res.Ratio != nil {
		t.Errorf("ratio: got %v, want null", *res.Ratio)
	}
	if res.Status != "no_normal_cells" {
		t.Errorf("status: got %s, want no_normal_cells", res.Status)
	}
	if !strings.Contains(res.Message, "no normal cells") {
		t.Errorf("message: got %q", res.Message)
	}
}

func TestHandleToolsCall_CellClassify_Blank(t *testing.T) {
	s := New(Options{})
	imgPath := createTestImageFile(t, 50, 50, color.White)

	var res classifyResponse
	decodeToolText(t, callTool(t, s, "cell_classify", map[string]interface{}{"path": imgPath}), &res)

	if res.Status != "no_contours" {
		t.Errorf("status: got %s, want no_contours", res.Status)
	}
	if res.Cells == nil || len(res.Cells) != 0 {
		t.Errorf("cells: got %v, want empty list", res.Cells)
	}
}

func TestHandleToolsCall_CellClassify_Outputs(t *testing.T) {
	s := New(Options{})
	imgPath := createSmearFile(t, 40, 60, image.Rect(15, 10, 25, 50))
	outPath := filepath.Join(t.TempDir(), "annotated.png")

	var res classifyResponse
	resp := callTool(t, s, "cell_classify", map[string]interface{}{
		"path": imgPath, "output_path": outPath, "include_image": true,
	})
	decodeToolText(t, resp, &res)

	if res.OutputPath != outPath {
		t.Errorf("output_path: got %s, want %s", res.OutputPath, outPath)
	}
	f, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("annotated image not written: %v", err)
	}
	defer f.Close()
	saved, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode annotated image: %v", err)
	}
	if r, g, b, _ := saved.At(25, 30).RGBA(); r != 0 || g != 0 || b != 0 {
		t.Errorf("Expected outline pixel at (25,30) to be black")
	}

	if res.Image == nil {
		t.Fatal("Expected image in response")
	}
	if res.Image.MimeType != "image/png" || res.Image.Width != 40 {
		t.Errorf("image: got %+v", res.Image)
	}
	if _, err := base64.StdEncoding.DecodeString(res.Image.ImageBase64); err != nil {
		t.Errorf("invalid base64: %v", err)
	}

	// The cached source stays clean.
	img, err := s.cache.Load(imgPath)
	if err != nil {
		t.Fatal(err)
	}
	if r, _, _, _ := img.At(25, 30).RGBA(); r == 0 {
		t.Error("Classification modified the cached image")
	}
}

func TestHandleToolsCall_CellStages(t *testing.T) {
	s := New(Options{})
	imgPath := createSmearFile(t, 40, 60, image.Rect(15, 10, 25, 50))

	tests := []struct {
		stage       string
		wantNonZero int
	}{
		{"mask", 400},
		{"dilated", 400},
		{"edges", 96},
	}

	for _, tt := range tests {
		t.Run(tt.stage, func(t *testing.T) {
			var res struct {
				Stage   string `json:"stage"`
				NonZero int    `json:"non_zero"`
				Width   int    `json:"width"`
			}
			decodeToolText(t, callTool(t, s, "cell_stages", map[string]interface{}{"path": imgPath, "stage": tt.stage}), &res)

			if res.NonZero != tt.wantNonZero {
				t.Errorf("non_zero: got %d, want %d", res.NonZero, tt.wantNonZero)
			}
			if res.Width != 40 {
				t.Errorf("width: got %d, want 40", res.Width)
			}
		})
	}

	resp := callTool(t, s, "cell_stages", map[string]interface{}{"path": imgPath, "stage": "blurred"})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("Expected -32602 for unknown stage, got %+v", resp.Error)
	}
}

func TestHandleToolsCall_CellCrop(t *testing.T) {
	s := New(Options{})
	imgPath := createSmearFile(t, 40, 60, image.Rect(15, 10, 25, 50))

	var res struct {
		Cell struct {
			Index int `json:"index"`
		} `json:"cell"`
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	decodeToolText(t, callTool(t, s, "cell_crop", map[string]interface{}{"path": imgPath, "index": 0, "padding": 2}), &res)

	// Bounds (14,9) 11x41 grown by 2 on each side.
	if res.Width != 15 || res.Height != 45 {
		t.Errorf("crop size: got %dx%d, want 15x45", res.Width, res.Height)
	}

	resp := callTool(t, s, "cell_crop", map[string]interface{}{"path": imgPath, "index": 3})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("Expected -32602 for out of range index, got %+v", resp.Error)
	}
}

func TestExecuteTool_AllTools(t *testing.T) {
	s := New(Options{})
	imgPath := createSmearFile(t, 80, 60, image.Rect(10, 10, 20, 50), image.Rect(40, 15, 60, 35))

	// Test each tool to ensure executeTool correctly dispatches
	toolTests := []struct {
		name string
		args map[string]interface{}
	}{
		{"image_load", map[string]interface{}{"path": imgPath}},
		{"image_dimensions", map[string]interface{}{"path": imgPath}},
		{"image_crop", map[string]interface{}{"path": imgPath, "x1": 0, "y1": 0, "x2": 50, "y2": 50}},
		{"image_sample_color", map[string]interface{}{"path": imgPath, "x": 5, "y": 5}},
		{"cell_classify", map[string]interface{}{"path": imgPath}},
		{"cell_stages", map[string]interface{}{"path": imgPath}},
		{"cell_crop", map[string]interface{}{"path": imgPath, "index": 1}},
	}

	for _, tt := range toolTests {
		t.Run(tt.name, func(t *testing.T) {
			argsJSON, _ := json.Marshal(tt.args)
			result, err := s.executeTool(context.Background(), tt.name, argsJSON)
			if err != nil {
				t.Fatalf("executeTool(%s) failed: %v", tt.name, err)
			}
			if result == nil {
				t.Errorf("executeTool(%s) returned nil result", tt.name)
			}
		})
	}

	if len(toolTests) != len(GetToolDefinitions()) {
		t.Errorf("Test covers %d tools, %d are defined", len(toolTests), len(GetToolDefinitions()))
	}
}

func TestExecuteTool_UnknownTool(t *testing.T) {
	s := New(Options{})

	_, err := s.executeTool(context.Background(), "unknown_tool", json.RawMessage(`{}`))
	if err == nil {
		t.Error("executeTool should fail for unknown tool")
	}
}

func TestExecuteTool_InvalidJSON(t *testing.T) {
	s := New(Options{})

	_, err := s.executeTool(context.Background(), "image_load", json.RawMessage(`{invalid`))
	if err == nil {
		t.Error("executeTool should fail for invalid JSON")
	}
}
