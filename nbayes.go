package main

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/hickeroar/nbayes/bayes"
	"github.com/hickeroar/nbayes/dataset"
)

const maxRequestBodyBytes = 1 << 20 // 1 MiB

var categoryNamePattern = regexp.MustCompile(`^[-_A-Za-z0-9]+$`)

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

var (
	makeSignalChannel = func() chan os.Signal { return make(chan os.Signal, 1) }
	notifySignals     = func(c chan<- os.Signal, sig ...os.Signal) { signal.Notify(c, sig...) }
	newServer         = func(addr string, handler http.Handler) httpServer {
		return &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       30 * time.Second,
		}
	}
	logFatal = func(v ...interface{}) {
		logger, err := zap.NewProduction()
		if err != nil {
			fmt.Fprintln(os.Stderr, v...)
			os.Exit(1)
		}
		logger.Fatal(fmt.Sprint(v...))
	}
	runMain = func() error {
		cfg, err := parseConfig(flag.CommandLine, os.Args[1:])
		if err != nil {
			return err
		}

		logger, err := newLogger(cfg.Log)
		if err != nil {
			return err
		}
		defer logger.Sync()
		undo := zap.ReplaceGlobals(logger)
		defer undo()

		defaults, err := cfg.trainOptions()
		if err != nil {
			return err
		}

		controller, err := NewClassifierAPI(bayes.NewClassifier(defaults...), cfg.CacheSize, logger)
		if err != nil {
			return err
		}

		if err := controller.trainFromConfig(context.Background(), cfg.Dataset); err != nil {
			return err
		}

		mux := http.NewServeMux()
		controller.RegisterRoutes(mux)
		controller.ready.Store(true)

		server := newServer(":"+cfg.Port, withAuthorizationToken(mux, cfg.AuthToken))
		logger.Info("server listening",
			zap.String("port", cfg.Port),
			zap.Bool("auth", cfg.AuthToken != ""),
			zap.Float64("criticalValue", cfg.CriticalValue),
		)

		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logFatal(err)
			}
		}()

		sigCh := makeSignalChannel()
		notifySignals(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		controller.ready.Store(false)
		logger.Info("shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return server.Shutdown(ctx)
	}
)

// ClassifierAPI serves classifier HTTP endpoints over a shared classifier.
type ClassifierAPI struct {
	classifier *bayes.Classifier
	cache      *lru.Cache[string, string] // predictionCacheKey -> predicted category
	logger     *zap.Logger
	ready      atomic.Bool
}

// NewClassifierAPI wires a classifier to the HTTP layer. A cacheSize of zero
// disables prediction caching.
func NewClassifierAPI(classifier *bayes.Classifier, cacheSize int, logger *zap.Logger) (*ClassifierAPI, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	api := &ClassifierAPI{
		classifier: classifier,
		logger:     logger,
	}

	if cacheSize > 0 {
		cache, err := lru.New[string, string](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create prediction cache: %w", err)
		}
		api.cache = cache
	}

	return api, nil
}

// RegisterRoutes registers all API routes on the provided ServeMux.
func (c *ClassifierAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/info", c.InfoHandler)
	mux.HandleFunc("/train", c.TrainHandler)
	mux.HandleFunc("/predict", c.PredictHandler)
	mux.HandleFunc("/score", c.ScoreHandler)
	mux.HandleFunc("/flush", c.FlushHandler)
	mux.HandleFunc("/healthz", HealthHandler)
	mux.HandleFunc("/readyz", c.ReadyHandler)
}

// withAuthorizationToken requires a bearer token on every route except the probes.
func withAuthorizationToken(next http.Handler, token string) http.Handler {
	if token == "" {
		return next
	}

	expected := []byte(token)
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "/healthz" || req.URL.Path == "/readyz" {
			next.ServeHTTP(w, req)
			return
		}

		provided, ok := strings.CutPrefix(req.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(provided), expected) != 1 {
			w.Header().Set("WWW-Authenticate", `Bearer realm="nbayes"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		next.ServeHTTP(w, req)
	})
}

func writeJSON(w http.ResponseWriter, status int, value interface{}) {
	jsonResponse, err := json.Marshal(value)
	if err != nil {
		zap.L().Error("failed to marshal response", zap.Error(err))
		http.Error(w, `{"error":"failed to marshal response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(jsonResponse); err != nil {
		zap.L().Warn("failed to write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeClassifierError maps classifier error kinds onto HTTP statuses.
func writeClassifierError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bayes.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, bayes.ErrInvalidState):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func readBody(w http.ResponseWriter, req *http.Request) ([]byte, bool) {
	req.Body = http.MaxBytesReader(w, req.Body, maxRequestBodyBytes)
	defer req.Body.Close()

	body, err := io.ReadAll(req.Body)
	if err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "unable to read request body")
		return nil, false
	}

	return body, true
}

func validCategoryName(name string) bool {
	return categoryNamePattern.MatchString(name)
}

func requireMethod(w http.ResponseWriter, req *http.Request, method string) bool {
	if req.Method != method {
		w.Header().Set("Allow", method)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

// TrainRequest is the body of a training request.
type TrainRequest struct {
	Categories    map[string][]string `json:"categories"`
	Order         []string            `json:"order,omitempty"`    // Optional evaluation order, lexical otherwise
	Priors        map[string]float64  `json:"priors,omitempty"`   // Omitted to estimate from the sample
	CriticalValue *float64            `json:"criticalValue,omitempty"`
}

// dataset builds the training dataset, honoring Order when given.
func (r TrainRequest) dataset() (*bayes.Dataset, error) {
	for name := range r.Categories {
		if !validCategoryName(name) {
			return nil, fmt.Errorf("%w: invalid category name %q", bayes.ErrInvalidArgument, name)
		}
	}
	if len(r.Order) == 0 {
		return bayes.DatasetFromMap(r.Categories), nil
	}

	if len(r.Order) != len(r.Categories) {
		return nil, fmt.Errorf("%w: order must list every category exactly once", bayes.ErrInvalidArgument)
	}
	ds := bayes.NewDataset()
	seen := make(map[string]bool, len(r.Order))
	for _, name := range r.Order {
		examples, ok := r.Categories[name]
		if !ok || seen[name] {
			return nil, fmt.Errorf("%w: order must list every category exactly once", bayes.ErrInvalidArgument)
		}
		seen[name] = true
		ds.Add(name, examples...)
	}
	return ds, nil
}

func (r TrainRequest) options() []bayes.TrainOption {
	var opts []bayes.TrainOption
	if r.Priors != nil {
		opts = append(opts, bayes.WithPriors(r.Priors))
	}
	if r.CriticalValue != nil {
		opts = append(opts, bayes.WithCriticalValue(*r.CriticalValue))
	}
	return opts
}

// train builds and installs a new model, then drops cached predictions.
func (c *ClassifierAPI) train(ds *bayes.Dataset, opts ...bayes.TrainOption) (*bayes.KnowledgeBase, error) {
	started := time.Now()
	kb, err := c.classifier.Train(ds, opts...)
	if err != nil {
		c.logger.Warn("training rejected", zap.Error(err))
		return nil, err
	}
	if c.cache != nil {
		c.cache.Purge()
	}

	c.logger.Info("model trained",
		zap.String("model", kb.ID),
		zap.Int("observations", kb.N),
		zap.Int("categories", kb.C),
		zap.Int("features", kb.D),
		zap.Duration("elapsed", time.Since(started)),
	)
	return kb, nil
}

// trainFromConfig trains on the configured startup dataset, if any.
func (c *ClassifierAPI) trainFromConfig(ctx context.Context, cfg DatasetConfig) error {
	var (
		ds   *bayes.Dataset
		opts []bayes.TrainOption
		err  error
	)

	switch {
	case cfg.Dir != "":
		ds, err = dataset.LoadDir(cfg.Dir)
	case cfg.YAML != "":
		var file *dataset.File
		file, err = dataset.LoadYAML(cfg.YAML)
		if err == nil {
			ds, opts = file.Dataset(), file.TrainOptions()
		}
	case cfg.SQLite != "":
		ds, err = loadSQLiteDataset(ctx, cfg.SQLite, cfg.Query)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("load startup dataset: %w", err)
	}

	if _, err := c.train(ds, opts...); err != nil {
		return fmt.Errorf("train startup dataset: %w", err)
	}
	return nil
}

func loadSQLiteDataset(ctx context.Context, path, query string) (*bayes.Dataset, error) {
	if query == "" {
		query = defaultSQLQuery
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()

	return dataset.LoadSQL(ctx, db, query)
}

// InfoHandler returns the current model description.
func (c *ClassifierAPI) InfoHandler(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodGet) {
		return
	}

	writeJSON(w, http.StatusOK, NewModelResponse(c.classifier.KnowledgeBase(), true))
}

// TrainHandler replaces the model with one trained on the request dataset.
func (c *ClassifierAPI) TrainHandler(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodPost) {
		return
	}

	body, ok := readBody(w, req)
	if !ok {
		return
	}

	var request TrainRequest
	if err := json.Unmarshal(body, &request); err != nil {
		writeError(w, http.StatusBadRequest, "invalid training request")
		return
	}

	ds, err := request.dataset()
	if err != nil {
		writeClassifierError(w, err)
		return
	}

	kb, err := c.train(ds, request.options()...)
	if err != nil {
		writeClassifierError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, NewModelResponse(kb, true))
}

// predictionCacheKey identifies a prediction by model and text digest, so
// cached keys stay small whatever the request size.
func predictionCacheKey(modelID string, text []byte) string {
	sum := sha256.Sum256(text)
	return modelID + ":" + hex.EncodeToString(sum[:])
}

// PredictHandler classifies request body text and returns the top category.
func (c *ClassifierAPI) PredictHandler(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodPost) {
		return
	}

	body, ok := readBody(w, req)
	if !ok {
		return
	}

	kb := c.classifier.KnowledgeBase()
	if kb == nil {
		writeClassifierError(w, fmt.Errorf("%w: no trained model", bayes.ErrInvalidState))
		return
	}

	text := string(body)
	key := predictionCacheKey(kb.ID, body)
	if c.cache != nil {
		if category, ok := c.cache.Get(key); ok {
			writeJSON(w, http.StatusOK, PredictionResponse{Category: category})
			return
		}
	}

	category, err := kb.Predict(text)
	if err != nil {
		writeClassifierError(w, err)
		return
	}
	if c.cache != nil {
		c.cache.Add(key, category)
	}

	writeJSON(w, http.StatusOK, PredictionResponse{Category: category})
}

// ScoreHandler returns per-category log-posteriors for request body text.
func (c *ClassifierAPI) ScoreHandler(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodPost) {
		return
	}

	body, ok := readBody(w, req)
	if !ok {
		return
	}

	scores, err := c.classifier.Score(string(body))
	if err != nil {
		writeClassifierError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonScores(scores))
}

// FlushHandler drops the current model and gives us a fresh slate.
func (c *ClassifierAPI) FlushHandler(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodPost) {
		return
	}

	c.classifier.Flush()
	if c.cache != nil {
		c.cache.Purge()
	}
	c.logger.Info("model flushed")

	writeJSON(w, http.StatusOK, NewModelResponse(nil, true))
}

// HealthHandler returns liveness status for process health checks.
func HealthHandler(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyHandler returns readiness status for traffic checks.
func (c *ClassifierAPI) ReadyHandler(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodGet) {
		return
	}
	if !c.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func main() {
	if err := runMain(); err != nil {
		logFatal(err)
	}
}
