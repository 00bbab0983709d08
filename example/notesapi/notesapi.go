// Package notesapi declares the calls of the notes example service. The
// server and the client build the same declarations from the same config.
package notesapi

import (
	"github.com/mnehpets/callspec/body"
	"github.com/mnehpets/callspec/callspec"
	"github.com/mnehpets/callspec/config"
	"github.com/mnehpets/callspec/typed"
	"github.com/mnehpets/callspec/urlparams"
)

type Note struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Tag    string `json:"tag,omitempty"`
	Author string `json:"author,omitempty"`
}

var (
	UserKey  = typed.NewKey[string]("X-User")
	TagKey   = typed.NewKey[string]("tag")
	NameKey  = typed.NewKey[string]("name")
	TokenKey = typed.NewKey[string]("token")
)

// API holds the declared calls.
type API struct {
	Context *callspec.WebContextSpec
	Notes   *callspec.RestCallSpec
	ByTag   *callspec.QuerySpec
	// Login exchanges a user name for a sealed context token.
	Login *callspec.WebServiceCallSpec
}

func New(cfg *config.Config) (*API, error) {
	var api API
	var err error
	if api.Context, err = callspec.NewWebContextSpec(UserKey); err != nil {
		return nil, err
	}

	notes := cfg.CallPath(1, "/rest/notes")
	api.Notes, err = callspec.RestBuilderFor[Note](notes).WebContext(api.Context).Build()
	if err != nil {
		return nil, err
	}

	byTag, err := urlparams.NewSpec(TagKey)
	if err != nil {
		return nil, err
	}
	api.ByTag, err = callspec.NewQueryBuilder(notes, "byTag", typed.TypeOf[Note]()).
		Params(byTag).
		WebContext(api.Context).
		Build()
	if err != nil {
		return nil, err
	}

	loginReq, err := body.MapSpecOf(NameKey)
	if err != nil {
		return nil, err
	}
	loginResp, err := body.MapSpecOf(TokenKey)
	if err != nil {
		return nil, err
	}
	api.Login, err = callspec.NewBuilder(cfg.CallPath(1, "/rpc/login")).
		SupportsMethod(callspec.MethodPost).
		RequestBody(loginReq).
		ResponseBody(loginResp).
		Build()
	if err != nil {
		return nil, err
	}
	return &api, nil
}
