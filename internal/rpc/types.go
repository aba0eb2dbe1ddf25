package rpc

import (
	"encoding/json"

	"vellum/internal/engine"
)

type rpcMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    *errorData `json:"data,omitempty"`
}

type errorData struct {
	Kind string `json:"kind"`
}

type initializeParams struct {
	Root                 string   `json:"root,omitempty"`
	AllowedPaths         []string `json:"allowedPaths,omitempty"`
	AllowPreviewPackages *bool    `json:"allowPreviewPackages,omitempty"`
}

type initializeResult struct {
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Methods []string `json:"methods"`
}

type setSourceParams struct {
	Text string `json:"text"`
}

type applyEditParams struct {
	// From and To are UTF-16 offsets into the main buffer.
	From int    `json:"from"`
	To   int    `json:"to"`
	Text string `json:"text"`
}

type applyEditResult struct {
	Applied bool `json:"applied"`
}

type compileParams struct {
	Now string `json:"now,omitempty"`
}

type compileResult struct {
	State string               `json:"state"`
	Pages []engine.PageSummary `json:"pages"`
}

type renderPageParams struct {
	Page  int     `json:"page"`
	Scale float64 `json:"scale"`
	Dark  bool    `json:"dark,omitempty"`
}

type renderPageResult struct {
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
	// Pixels is premultiplied RGBA8, base64 encoded.
	Pixels string `json:"pixels"`
}

type pdfParams struct {
	Version  string `json:"version,omitempty"`
	Standard string `json:"standard,omitempty"`
	Tagged   bool   `json:"tagged,omitempty"`
}

type exportParams struct {
	Path    string    `json:"path"`
	Format  string    `json:"format"`
	DPI     int       `json:"dpi,omitempty"`
	Pattern string    `json:"pattern,omitempty"`
	PDF     pdfParams `json:"pdf,omitempty"`
}

type exportResult struct {
	Written bool `json:"written"`
}

type positionParams struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type referenceResult struct {
	Name string `json:"name"`
	Docs string `json:"docs"`
	URL  string `json:"url"`
}

type countWordsParams struct {
	// Page is zero-based; nil counts the whole main buffer.
	Page *int `json:"page,omitempty"`
}

type countWordsResult struct {
	Words int `json:"words"`
}

type packageEntry struct {
	Spec        string `json:"spec"`
	Description string `json:"description,omitempty"`
}

type setAllowedPathsParams struct {
	Paths []string `json:"paths"`
}

type setAllowPreviewParams struct {
	Allow bool `json:"allow"`
}

type logParams struct {
	Kind    string   `json:"kind"`
	Message string   `json:"message"`
	File    string   `json:"file,omitempty"`
	Start   *linePos `json:"start,omitempty"`
	End     *linePos `json:"end,omitempty"`
	Hints   []string `json:"hints,omitempty"`
}

type linePos struct {
	Line   int64 `json:"line"`
	Column int64 `json:"column"`
}
