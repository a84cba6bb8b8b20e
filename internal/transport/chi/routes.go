package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface lists the API operations.
type ServerInterface interface {
	// (POST /search)
	Search(w http.ResponseWriter, r *http.Request)
	// (GET /profiles)
	ListProfiles(w http.ResponseWriter, r *http.Request)
	// (GET /collections)
	ListCollections(w http.ResponseWriter, r *http.Request)
	// (PUT /collections/{collection})
	CreateCollection(w http.ResponseWriter, r *http.Request, collection string)
	// (GET /collections/{collection})
	GetCollection(w http.ResponseWriter, r *http.Request, collection string)
	// (DELETE /collections/{collection})
	DeleteCollection(w http.ResponseWriter, r *http.Request, collection string)
	// (POST /collections/{collection}/documents)
	AddDocuments(w http.ResponseWriter, r *http.Request, collection string)
	// (POST /collections/{collection}/query)
	QueryCollection(w http.ResponseWriter, r *http.Request, collection string, params QueryParams)
	// (GET /sessions/{session})
	GetSession(w http.ResponseWriter, r *http.Request, session string)
	// (DELETE /sessions/{session})
	ResetSession(w http.ResponseWriter, r *http.Request, session string)
	// (GET /usage)
	GetUsage(w http.ResponseWriter, r *http.Request, params UsageParams)
	// (GET /health)
	HealthCheck(w http.ResponseWriter, r *http.Request)
	// (GET /metrics)
	Metrics(w http.ResponseWriter, r *http.Request)
}

// ChiServerOptions configures HandlerWithOptions.
type ChiServerOptions struct {
	BaseRouter chi.Router
	// ErrorHandlerFunc answers parameter binding failures.
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// InvalidParamFormatError reports a path or query parameter that failed to bind.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %s", e.ParamName, e.Err)
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

type serverInterfaceWrapper struct {
	handler      ServerInterface
	errorHandler func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerWithOptions mounts every operation of si on the base router.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		}
	}
	wrapper := serverInterfaceWrapper{handler: si, errorHandler: options.ErrorHandlerFunc}

	r.Post("/search", si.Search)
	r.Get("/profiles", si.ListProfiles)
	r.Get("/collections", si.ListCollections)
	r.Put("/collections/{collection}", wrapper.withPath("collection", si.CreateCollection))
	r.Get("/collections/{collection}", wrapper.withPath("collection", si.GetCollection))
	r.Delete("/collections/{collection}", wrapper.withPath("collection", si.DeleteCollection))
	r.Post("/collections/{collection}/documents", wrapper.withPath("collection", si.AddDocuments))
	r.Post("/collections/{collection}/query", wrapper.queryCollection)
	r.Get("/sessions/{session}", wrapper.withPath("session", si.GetSession))
	r.Delete("/sessions/{session}", wrapper.withPath("session", si.ResetSession))
	r.Get("/usage", wrapper.getUsage)
	r.Get("/health", si.HealthCheck)
	r.Get("/metrics", si.Metrics)
	return r
}

func (w *serverInterfaceWrapper) withPath(
	name string, next func(http.ResponseWriter, *http.Request, string),
) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		value, err := bindPath(r, name)
		if err != nil {
			w.errorHandler(rw, r, err)
			return
		}
		next(rw, r, value)
	}
}

func (w *serverInterfaceWrapper) queryCollection(rw http.ResponseWriter, r *http.Request) {
	collection, err := bindPath(r, "collection")
	if err != nil {
		w.errorHandler(rw, r, err)
		return
	}

	var params QueryParams
	if err := runtime.BindQueryParameter("form", true, false, "top_k", r.URL.Query(), &params.TopK); err != nil {
		w.errorHandler(rw, r, &InvalidParamFormatError{ParamName: "top_k", Err: err})
		return
	}

	w.handler.QueryCollection(rw, r, collection, params)
}

func (w *serverInterfaceWrapper) getUsage(rw http.ResponseWriter, r *http.Request) {
	var params UsageParams
	if err := runtime.BindQueryParameter("form", true, false, "period", r.URL.Query(), &params.Period); err != nil {
		w.errorHandler(rw, r, &InvalidParamFormatError{ParamName: "period", Err: err})
		return
	}

	w.handler.GetUsage(rw, r, params)
}

func bindPath(r *http.Request, name string) (string, error) {
	var value string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &value,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return "", &InvalidParamFormatError{ParamName: name, Err: err}
	}
	return value, nil
}
