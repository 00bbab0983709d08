package main

import (
	"context"
	"crypto/rand"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/mnehpets/callspec/body"
	"github.com/mnehpets/callspec/callspec"
	"github.com/mnehpets/callspec/config"
	"github.com/mnehpets/callspec/dispatch"
	"github.com/mnehpets/callspec/endpoint"
	"github.com/mnehpets/callspec/envelope"
	"github.com/mnehpets/callspec/example/notesapi"
	"github.com/mnehpets/callspec/middleware"
	"github.com/mnehpets/callspec/params"
	"github.com/mnehpets/callspec/reason"
)

// store keeps notes in memory.
type store struct {
	mu    sync.RWMutex
	seq   dispatch.Sequence
	notes map[string]notesapi.Note
}

func author(call *dispatch.Call) (string, error) {
	user, ok := callspec.ContextValue(call.WebContext, notesapi.UserKey)
	if !ok || user == "" {
		return "", reason.New(reason.Unauthorized, "login required")
	}
	return user, nil
}

func (s *store) Get(_ context.Context, _ *dispatch.Call, id string) (notesapi.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[id]
	if !ok {
		return n, reason.Errorf(reason.PreconditionFailed, "note %s not found", id)
	}
	return n, nil
}

func (s *store) Post(_ context.Context, call *dispatch.Call, n notesapi.Note) (notesapi.Note, error) {
	user, err := author(call)
	if err != nil {
		return n, err
	}
	n.ID = s.seq.NextID()
	n.Author = user
	s.mu.Lock()
	s.notes[n.ID] = n
	s.mu.Unlock()
	return n, nil
}

func (s *store) Put(_ context.Context, call *dispatch.Call, id string, n notesapi.Note) (notesapi.Note, error) {
	user, err := author(call)
	if err != nil {
		return n, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.notes[id]
	if !ok {
		return n, reason.Errorf(reason.PreconditionFailed, "note %s not found", id)
	}
	if old.Author != user {
		return n, reason.New(reason.Unauthorized, "not your note")
	}
	n.ID, n.Author = id, user
	s.notes[id] = n
	return n, nil
}

func (s *store) Delete(_ context.Context, call *dispatch.Call, id string) error {
	user, err := author(call)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.notes[id]; ok && n.Author != user {
		return reason.New(reason.Unauthorized, "not your note")
	}
	delete(s.notes, id)
	return nil
}

func (s *store) byTag(_ context.Context, call *dispatch.Call) ([]notesapi.Note, error) {
	tag, _ := call.Request.URLParams.Get(notesapi.TagKey.Name())
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []notesapi.Note{}
	for _, n := range s.notes {
		if n.Tag == tag {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	api, err := notesapi.New(cfg)
	if err != nil {
		log.Fatal(err)
	}

	// For example purposes, we generate a random key. In production, this should be persisted.
	key := make([]byte, middleware.DefaultKeySize)
	if _, err := rand.Read(key); err != nil {
		log.Fatal(err)
	}
	sealer, err := middleware.NewContextSealer(api.Context, "key1", map[string][]byte{"key1": key},
		middleware.WithTTL(12*time.Hour))
	if err != nil {
		log.Fatal(err)
	}

	// HSTS is off so the server can be tried on http://localhost.
	headers := middleware.NewAPIHeadersProcessor(
		middleware.WithoutHSTS(),
		middleware.WithCORS(&middleware.CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
			MaxAge:         3600,
		}),
	)
	d := dispatch.New(dispatch.Options{
		ResourcePrefix: cfg.ResourcePrefix,
		Processors:     []endpoint.Processor{headers, &middleware.ContextProcessor{Sealer: sealer, RefreshWithin: time.Hour}},
		Logger:         log.Default(),
	})

	s := &store{notes: make(map[string]notesapi.Note)}
	dispatch.RegisterResource[notesapi.Note](d, api.Notes, s)
	dispatch.RegisterQuery(d, api.ByTag, s.byTag)
	dispatch.RegisterRPC(d, api.Login, func(_ context.Context, call *dispatch.Call, resp *envelope.ResponseBuilder) error {
		in := call.Request.Body.(*body.Map).Values
		name, _ := params.Value(in, notesapi.NameKey)
		if name == "" {
			return reason.New(reason.BadRequest, "name required")
		}
		wc := params.NewMap(api.Context.Headers())
		if err := params.Set(wc, notesapi.UserKey, name); err != nil {
			return err
		}
		token, err := sealer.Seal(api.Context.From(wc))
		if err != nil {
			return err
		}
		out, err := body.NewMap(api.Login.ResponseSpec().Body(), nil)
		if err != nil {
			return err
		}
		if err := params.Set(out.Values, notesapi.TokenKey, token); err != nil {
			return err
		}
		resp.Body(out)
		return nil
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /catalog", endpoint.HandleFunc(d.CatalogEndpoint, headers))
	mux.Handle("/", d)

	log.Println("Listening on :8080")
	for _, e := range d.Catalog() {
		log.Printf("  %-14s %s %s %v", e.Kind, e.Path, e.Query, e.Methods)
	}
	if err := http.ListenAndServe(":8080", mux); err != nil {
		log.Fatal(err)
	}
}
