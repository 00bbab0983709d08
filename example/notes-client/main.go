package main

import (
	"context"
	"log"
	"sync"

	"github.com/mnehpets/callspec/body"
	"github.com/mnehpets/callspec/callspec"
	"github.com/mnehpets/callspec/client"
	"github.com/mnehpets/callspec/config"
	"github.com/mnehpets/callspec/envelope"
	"github.com/mnehpets/callspec/example/notesapi"
	"github.com/mnehpets/callspec/params"
	"github.com/mnehpets/callspec/reason"
	"github.com/mnehpets/callspec/urlparams"
)

func login(ctx context.Context, c *client.Client, api *notesapi.API, name string) (string, error) {
	in, err := body.NewMap(api.Login.RequestSpec().Body(), nil)
	if err != nil {
		return "", err
	}
	if err := params.Set(in.Values, notesapi.NameKey, name); err != nil {
		return "", err
	}
	req, err := envelope.NewRequestBuilder(api.Login).Method(callspec.MethodPost).Body(in).Build()
	if err != nil {
		return "", err
	}
	resp, err := c.Call(ctx, req)
	if err != nil {
		return "", err
	}
	token, _ := params.Value(resp.Body.(*body.Map).Values, notesapi.TokenKey)
	return token, nil
}

func postRequest(api *notesapi.API, n notesapi.Note) (*envelope.Request, error) {
	b, err := body.NewSimple(api.Notes.RequestSpec().Body(), n)
	if err != nil {
		return nil, err
	}
	return envelope.NewRequestBuilder(api.Notes.WebServiceCallSpec).Method(callspec.MethodPost).Body(b).Build()
}

func main() {
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	api, err := notesapi.New(cfg)
	if err != nil {
		log.Fatal(err)
	}

	anon, err := client.New(cfg, client.WithLogger(log.Default()))
	if err != nil {
		log.Fatal(err)
	}
	token, err := login(ctx, anon, api, "alice")
	if err != nil {
		log.Fatal(err)
	}
	c, err := client.New(cfg, client.WithLogger(log.Default()), client.WithContextToken(token))
	if err != nil {
		log.Fatal(err)
	}

	notes, err := client.NewRest[notesapi.Note](c, api.Notes)
	if err != nil {
		log.Fatal(err)
	}
	n, err := notes.Post(ctx, notesapi.Note{Title: "buy milk", Tag: "home"})
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("created %+v", n)

	// Queue a few more notes; they are created in order on one goroutine.
	async := client.NewAsync(c, 8)
	var wg sync.WaitGroup
	for _, title := range []string{"water plants", "call plumber", "pay rent"} {
		req, err := postRequest(api, notesapi.Note{Title: title, Tag: "home"})
		if err != nil {
			log.Fatal(err)
		}
		wg.Add(1)
		err = async.Submit(ctx, req, func(resp *envelope.Response, err error) {
			defer wg.Done()
			if err != nil {
				log.Printf("create %q: %v (retryable: %v)", title, err, reason.Of(err).Retryable())
				return
			}
			log.Printf("created %+v", resp.Body.(*body.Simple).Value)
		})
		if err != nil {
			wg.Done()
			log.Printf("submit %q: %v", title, err)
		}
	}
	wg.Wait()
	async.Shutdown()

	q := urlparams.New(api.ByTag.RequestSpec().URLParams())
	if err := params.Set(q.Values(), notesapi.TagKey, "home"); err != nil {
		log.Fatal(err)
	}
	list, err := notes.Query(ctx, api.ByTag, q)
	if err != nil {
		log.Fatal(err)
	}
	for _, n := range list {
		log.Printf("%s\t%s\t%s", n.ID, n.Author, n.Title)
	}

	if err := notes.Delete(ctx, n.ID); err != nil {
		log.Fatal(err)
	}
}
