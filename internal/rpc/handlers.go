package rpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"

	"vellum/internal/engine"
	"vellum/internal/session"
	"vellum/internal/typeset"
	"vellum/internal/version"
)

type handlerFunc func(ctx context.Context, s *Server, params json.RawMessage) (any, error)

var sessionMethods = map[string]handlerFunc{
	"session/setSource":       handleSetSource,
	"session/applyEdit":       handleApplyEdit,
	"session/compile":         handleCompile,
	"session/renderPage":      handleRenderPage,
	"session/export":          handleExport,
	"session/forwardSearch":   handleForwardSearch,
	"session/inverseSearch":   handleInverseSearch,
	"session/definition":      handleDefinition,
	"session/reference":       handleReference,
	"session/metadata":        handleMetadata,
	"session/countWords":      handleCountWords,
	"session/packages":        handlePackages,
	"session/setAllowedPaths": handleSetAllowedPaths,
	"session/setAllowPreview": handleSetAllowPreview,
	"session/discardCaches":   handleDiscardCaches,
}

func (s *Server) handleInitialize(raw json.RawMessage) (any, error) {
	var params initializeParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	root := params.Root
	if root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
	}
	cfg := s.opts.Config
	if params.AllowedPaths != nil {
		cfg.AllowedPaths = params.AllowedPaths
	}
	if params.AllowPreviewPackages != nil {
		cfg.AllowPreviewPackages = *params.AllowPreviewPackages
	}
	s.sess = session.Open(session.Options{
		Root:   root,
		Config: cfg,
		Logger: s,
		Slog:   s.log,
	})
	s.log.Debug("session initialized", "root", root)

	methods := make([]string, 0, len(sessionMethods))
	for name := range sessionMethods {
		methods = append(methods, name)
	}
	slices.Sort(methods)
	return initializeResult{Name: "vellum", Version: version.String(), Methods: methods}, nil
}

func handleSetSource(_ context.Context, s *Server, raw json.RawMessage) (any, error) {
	var params setSourceParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	s.sess.World.SetSourceText(params.Text)
	return nil, nil
}

func handleApplyEdit(_ context.Context, s *Server, raw json.RawMessage) (any, error) {
	var params applyEditParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	return applyEditResult{Applied: s.sess.World.ApplyEdit(params.From, params.To, params.Text)}, nil
}

func handleCompile(ctx context.Context, s *Server, raw json.RawMessage) (any, error) {
	var params compileParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	now := params.Now
	if now == "" && s.opts.Now != nil {
		now = s.opts.Now()
	}
	pages := s.sess.Engine.Compile(ctx, now)
	return compileResult{State: s.sess.Engine.State().String(), Pages: pages}, nil
}

func handleRenderPage(_ context.Context, s *Server, raw json.RawMessage) (any, error) {
	params := renderPageParams{Scale: 1}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	if params.Scale <= 0 {
		return nil, fmt.Errorf("%w: scale must be positive", errInvalidParams)
	}
	img, err := s.sess.Engine.RenderPage(params.Page, params.Scale, params.Dark)
	if err != nil {
		return nil, err
	}
	return renderPageResult{
		Width:  img.WidthPx,
		Height: img.HeightPx,
		Pixels: base64.StdEncoding.EncodeToString(img.Pixels),
	}, nil
}

func handleExport(ctx context.Context, s *Server, raw json.RawMessage) (any, error) {
	var params exportParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	if params.Path == "" {
		return nil, fmt.Errorf("%w: path is required", errInvalidParams)
	}
	format, err := engine.ParseFormat(params.Format)
	if err != nil {
		return nil, err
	}
	ok, err := s.sess.Engine.Export(ctx, params.Path, engine.ExportOptions{
		Format:  format,
		DPI:     params.DPI,
		Pattern: params.Pattern,
		PDF: typeset.PDFOptions{
			Version:  params.PDF.Version,
			Standard: params.PDF.Standard,
			Tagged:   params.PDF.Tagged,
		},
	})
	if err != nil {
		return nil, err
	}
	return exportResult{Written: ok}, nil
}

func handleForwardSearch(_ context.Context, s *Server, raw json.RawMessage) (any, error) {
	var params positionParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	return s.sess.Engine.ForwardSearch(params.Line, params.Column)
}

func handleInverseSearch(_ context.Context, s *Server, raw json.RawMessage) (any, error) {
	var params engine.PreviewPosition
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	return s.sess.Engine.InverseSearch(params)
}

func handleDefinition(_ context.Context, s *Server, raw json.RawMessage) (any, error) {
	var params positionParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	return s.sess.Engine.Definition(params.Line, params.Column)
}

func handleReference(_ context.Context, s *Server, raw json.RawMessage) (any, error) {
	var params positionParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	ref, err := s.sess.Engine.Reference(params.Line, params.Column)
	if err != nil {
		return nil, err
	}
	return referenceResult(ref), nil
}

func handleMetadata(_ context.Context, s *Server, _ json.RawMessage) (any, error) {
	return s.sess.Engine.Metadata()
}

func handleCountWords(_ context.Context, s *Server, raw json.RawMessage) (any, error) {
	var params countWordsParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	if params.Page == nil {
		return countWordsResult{Words: engine.CountWords(s.sess.World.MainSource().Text())}, nil
	}
	n, err := s.sess.Engine.CountPageWords(*params.Page)
	if err != nil {
		return nil, err
	}
	return countWordsResult{Words: n}, nil
}

func handlePackages(_ context.Context, s *Server, _ json.RawMessage) (any, error) {
	listing, err := s.sess.World.Packages()
	if err != nil {
		return nil, err
	}
	out := make([]packageEntry, 0, len(listing))
	for _, l := range listing {
		out = append(out, packageEntry{Spec: l.Spec.String(), Description: l.Description})
	}
	return out, nil
}

func handleSetAllowedPaths(_ context.Context, s *Server, raw json.RawMessage) (any, error) {
	var params setAllowedPathsParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	s.sess.Engine.SetAllowedPaths(params.Paths)
	return nil, nil
}

func handleSetAllowPreview(_ context.Context, s *Server, raw json.RawMessage) (any, error) {
	var params setAllowPreviewParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	s.sess.Proxy.SetAllowPreview(params.Allow)
	if !params.Allow {
		// resolved preview packages must be asked for again
		s.sess.Engine.DiscardLookupCaches()
	}
	return nil, nil
}

func handleDiscardCaches(_ context.Context, s *Server, _ json.RawMessage) (any, error) {
	s.sess.Engine.DiscardLookupCaches()
	return nil, nil
}
