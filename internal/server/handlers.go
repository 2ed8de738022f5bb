package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/cellmorph-mcp/internal/cells"
	"github.com/ironsheep/cellmorph-mcp/internal/imaging"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "cell_classify").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// paramError marks a failure caused by the caller's arguments rather than by
// running the tool.
type paramError struct {
	err error
}

func (e *paramError) Error() string { return e.err.Error() }
func (e *paramError) Unwrap() error { return e.err }

func invalidParams(format string, args ...interface{}) error {
	return &paramError{err: fmt.Errorf(format, args...)}
}

// decodeArgs unmarshals tool arguments, reporting malformed JSON as a parameter error.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	if err := json.Unmarshal(args, v); err != nil {
		return &paramError{err: err}
	}
	return nil
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Argument errors and unknown tools return -32602; tool execution errors return
// -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		var pErr *paramError
		if errors.As(err, &pErr) {
			return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
		}
		s.logger.Warn().Str("tool", params.Name).Err(err).Msg("tool failed")
		return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Loads images from cache as needed
//  4. Calls the appropriate imaging/cells function
//  5. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "image_crop":
		return s.handleImageCrop(args)
	case "image_sample_color":
		return s.handleImageSampleColor(args)

	// Cell Classification
	case "cell_classify":
		return s.handleCellClassify(ctx, args)
	case "cell_stages":
		return s.handleCellStages(ctx, args)
	case "cell_crop":
		return s.handleCellCrop(ctx, args)

	default:
		return nil, invalidParams("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// loadImage returns the cached image at path, requiring a non-empty path.
func (s *Server) loadImage(path string) (image.Image, error) {
	if path == "" {
		return nil, invalidParams("path is required")
	}
	return s.cache.Load(path)
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path   string `json:"path"`
	Reload bool   `json:"reload"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, invalidParams("path is required")
	}
	if a.Reload {
		s.cache.Evict(a.Path)
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, invalidParams("path is required")
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

type imageCropArgs struct {
	Path  string  `json:"path"`
	X1    int     `json:"x1"`
	Y1    int     `json:"y1"`
	X2    int     `json:"x2"`
	Y2    int     `json:"y2"`
	Scale float64 `json:"scale"`
}

func (s *Server) handleImageCrop(args json.RawMessage) (interface{}, error) {
	var a imageCropArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.Crop(img, a.X1, a.Y1, a.X2, a.Y2, a.Scale)
}

type imageSampleColorArgs struct {
	Path string `json:"path"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

type sampleColorResult struct {
	X   int    `json:"x"`
	Y   int    `json:"y"`
	Hex string `json:"hex"`
}

func (s *Server) handleImageSampleColor(args json.RawMessage) (interface{}, error) {
	var a imageSampleColorArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}
	hex := imaging.SampleHex(img, img.Bounds().Min.X+a.X, img.Bounds().Min.Y+a.Y)
	if hex == "" {
		return nil, invalidParams("point (%d,%d) is outside the image or transparent", a.X, a.Y)
	}
	return &sampleColorResult{X: a.X, Y: a.Y, Hex: hex}, nil
}

// === Cell Classification Handlers ===

type cellClassifyArgs struct {
	Path         string `json:"path"`
	OutputPath   string `json:"output_path"`
	IncludeImage bool   `json:"include_image"`
}

// classifyResult is the JSON shape of a cell_classify response.
type classifyResult struct {
	RunID    string `json:"run_id"`
	Backend  string `json:"backend"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Sickle   int    `json:"sickle"`
	Normal   int    `json:"normal"`
	Boundary int    `json:"boundary"`
	Contours int    `json:"contours"`
	Nested   int    `json:"nested"`
	Noise    int    `json:"noise"`

	// Ratio is null when Status is not "ok".
	Ratio   *float64     `json:"ratio"`
	Status  cells.Status `json:"status"`
	Message string       `json:"message,omitempty"`

	Cells      []cells.Cell         `json:"cells"`
	OutputPath string               `json:"output_path,omitempty"`
	Image      *imaging.ImageResult `json:"image,omitempty"`
	ElapsedMS  int64                `json:"elapsed_ms"`
}

func newClassifyResult(res *cells.Result) *classifyResult {
	out := &classifyResult{
		RunID:     res.RunID,
		Backend:   res.Backend,
		Width:     res.Width,
		Height:    res.Height,
		Sickle:    res.Sickle,
		Normal:    res.Normal,
		Boundary:  res.Boundary,
		Contours:  res.Contours,
		Nested:    res.Nested,
		Noise:     res.Noise,
		Status:    res.Status(),
		Cells:     res.Cells,
		ElapsedMS: res.Elapsed.Milliseconds(),
	}
	if out.Cells == nil {
		out.Cells = []cells.Cell{}
	}
	if ratio, err := res.Ratio(); err != nil {
		out.Message = err.Error()
	} else {
		out.Ratio = &ratio
	}
	return out
}

func (s *Server) classify(ctx context.Context, path string) (image.Image, *cells.Result, error) {
	img, err := s.loadImage(path)
	if err != nil {
		return nil, nil, err
	}
	res, err := s.classifier.Classify(ctx, img)
	if err != nil {
		return nil, nil, err
	}
	return img, res, nil
}

func (s *Server) handleCellClassify(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a cellClassifyArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	_, res, err := s.classify(ctx, a.Path)
	if err != nil {
		return nil, err
	}

	out := newClassifyResult(res)
	if a.OutputPath != "" {
		if err := imaging.SavePNG(res.Annotated, a.OutputPath); err != nil {
			return nil, err
		}
		out.OutputPath = a.OutputPath
	}
	if a.IncludeImage {
		if out.Image, err = imaging.EncodeResult(res.Annotated); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type cellStagesArgs struct {
	Path  string `json:"path"`
	Stage string `json:"stage"`
}

type stageResult struct {
	Stage   string `json:"stage"`
	NonZero int    `json:"non_zero"`
	*imaging.ImageResult
}

func (s *Server) handleCellStages(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a cellStagesArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Stage == "" {
		a.Stage = "edges"
	}
	// Validate the name before running the pipeline.
	if _, err := (&cells.Stages{}).Plane(a.Stage); err != nil {
		return nil, &paramError{err: err}
	}

	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}
	stages, err := s.classifier.Stages(ctx, img)
	if err != nil {
		return nil, err
	}
	plane, _ := stages.Plane(a.Stage)

	encoded, err := imaging.EncodeResult(plane.Gray())
	if err != nil {
		return nil, err
	}
	return &stageResult{Stage: a.Stage, NonZero: plane.CountNonZero(), ImageResult: encoded}, nil
}

type cellCropArgs struct {
	Path      string  `json:"path"`
	Index     int     `json:"index"`
	Padding   *int    `json:"padding"`
	Scale     float64 `json:"scale"`
	Annotated bool    `json:"annotated"`
}

type cellCropResult struct {
	Cell cells.Cell `json:"cell"`
	*imaging.ImageResult
}

func (s *Server) handleCellCrop(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a cellCropArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	padding := 4
	if a.Padding != nil {
		padding = *a.Padding
	}

	img, res, err := s.classify(ctx, a.Path)
	if err != nil {
		return nil, err
	}
	if a.Index < 0 || a.Index >= len(res.Cells) {
		return nil, invalidParams("cell index %d out of range (found %d cells)", a.Index, len(res.Cells))
	}
	c := res.Cells[a.Index]

	var src image.Image = res.Annotated
	r := image.Rect(c.Bounds.X, c.Bounds.Y, c.Bounds.X+c.Bounds.Width, c.Bounds.Y+c.Bounds.Height)
	if !a.Annotated {
		src = img
		r = r.Add(img.Bounds().Min)
	}

	encoded, err := imaging.CropPadded(src, r, padding, a.Scale)
	if err != nil {
		return nil, err
	}
	return &cellCropResult{Cell: c, ImageResult: encoded}, nil
}
