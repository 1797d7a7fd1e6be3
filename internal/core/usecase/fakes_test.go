package usecase

import (
	"bytes"
	"context"
	"io"

	"github.com/fabworks/partquote/internal/core/domain"
	"github.com/fabworks/partquote/internal/core/ports"
)

type partRepoFake struct {
	parts        map[string]*domain.Part
	byHash       *domain.Part
	statuses     []domain.PartStatus
	lastError    string
	saved        *domain.AnalysisResult
	createErr    error
	getErr       error
	saveErr      error
	statusErr    error
	findHashErr  error
	hashRequests int
}

func newPartRepoFake() *partRepoFake {
	return &partRepoFake{parts: map[string]*domain.Part{}}
}

func (f *partRepoFake) Create(_ context.Context, part *domain.Part) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.parts[part.ID] = part
	return nil
}

func (f *partRepoFake) GetByID(_ context.Context, id string) (*domain.Part, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	part, ok := f.parts[id]
	if !ok {
		return nil, domain.ErrPartNotFound
	}
	return part, nil
}

func (f *partRepoFake) FindAnalyzedByHash(_ context.Context, _ string) (*domain.Part, error) {
	f.hashRequests++
	if f.findHashErr != nil {
		return nil, f.findHashErr
	}
	if f.byHash == nil {
		return nil, domain.ErrPartNotFound
	}
	return f.byHash, nil
}

func (f *partRepoFake) UpdateStatus(_ context.Context, _ string, status domain.PartStatus, errMessage string) error {
	if f.statusErr != nil {
		return f.statusErr
	}
	f.statuses = append(f.statuses, status)
	f.lastError = errMessage
	return nil
}

func (f *partRepoFake) SaveAnalysis(_ context.Context, _ string, result domain.AnalysisResult) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = &result
	return nil
}

type storageFake struct {
	files   map[string][]byte
	opens   int
	saveErr error
	openErr error
}

func newStorageFake() *storageFake {
	return &storageFake{files: map[string][]byte{}}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	content, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.files[key] = content
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f.opens++
	if f.openErr != nil {
		return nil, f.openErr
	}
	content, ok := f.files[key]
	if !ok {
		return nil, domain.ErrPartNotFound
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (f *storageFake) Delete(_ context.Context, key string) error {
	delete(f.files, key)
	return nil
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishPartUploaded(_ context.Context, partID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, partID)
	return nil
}

func (f *queueFake) SubscribePartUploaded(context.Context, func(context.Context, string) error) error {
	return nil
}

type cacheFake struct {
	entries map[string]*domain.MeshData
	puts    int
	getErr  error
	putErr  error
}

func newCacheFake() *cacheFake {
	return &cacheFake{entries: map[string]*domain.MeshData{}}
}

func (f *cacheFake) Get(_ context.Context, contentHash string) (*domain.MeshData, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.entries[contentHash], nil
}

func (f *cacheFake) Put(_ context.Context, mesh *domain.MeshData) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.puts++
	f.entries[mesh.ContentHash] = mesh
	return nil
}

type geometryServiceFake struct {
	result    *domain.AnalysisResult
	mesh      *domain.MeshData
	err       error
	healthErr error
	lastReq   ports.GeometryRequest
	calls     int
}

func (f *geometryServiceFake) CheckHealth(context.Context) error { return f.healthErr }

func (f *geometryServiceFake) Analyze(_ context.Context, req ports.GeometryRequest) (*domain.AnalysisResult, *domain.MeshData, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.result, f.mesh, nil
}

type observerFake struct {
	methods   []domain.AnalysisMethod
	cacheHits int
	fallbacks []string
}

func (f *observerFake) ObserveAnalysis(method domain.AnalysisMethod, cacheHit bool) {
	f.methods = append(f.methods, method)
	if cacheHit {
		f.cacheHits++
	}
}

func (f *observerFake) ObserveFallback(reason string) {
	f.fallbacks = append(f.fallbacks, reason)
}

type catalogFake struct {
	processes  map[string]*domain.Process
	materials  map[string]*domain.Material
	treatments map[string]*domain.SurfaceTreatment
}

func newCatalogFake() *catalogFake {
	return &catalogFake{
		processes:  map[string]*domain.Process{},
		materials:  map[string]*domain.Material{},
		treatments: map[string]*domain.SurfaceTreatment{},
	}
}

func (f *catalogFake) GetProcess(_ context.Context, name string) (*domain.Process, error) {
	if p, ok := f.processes[name]; ok {
		return p, nil
	}
	return nil, domain.ErrCatalogNotFound
}

func (f *catalogFake) GetMaterial(_ context.Context, name string) (*domain.Material, error) {
	if m, ok := f.materials[name]; ok {
		return m, nil
	}
	return nil, domain.ErrCatalogNotFound
}

func (f *catalogFake) GetSurfaceTreatment(_ context.Context, name string) (*domain.SurfaceTreatment, error) {
	if t, ok := f.treatments[name]; ok {
		return t, nil
	}
	return nil, domain.ErrCatalogNotFound
}

type quoteRepoFake struct {
	requests  map[string]domain.QuoteRequest
	results   map[string]*domain.QuoteResult
	createErr error
}

func newQuoteRepoFake() *quoteRepoFake {
	return &quoteRepoFake{
		requests: map[string]domain.QuoteRequest{},
		results:  map[string]*domain.QuoteResult{},
	}
}

func (f *quoteRepoFake) Create(_ context.Context, req domain.QuoteRequest, result *domain.QuoteResult) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.requests[result.ID] = req
	f.results[result.ID] = result
	return nil
}

func (f *quoteRepoFake) GetByID(_ context.Context, id string) (domain.QuoteRequest, *domain.QuoteResult, error) {
	result, ok := f.results[id]
	if !ok {
		return domain.QuoteRequest{}, nil, domain.ErrQuoteNotFound
	}
	return f.requests[id], result, nil
}
