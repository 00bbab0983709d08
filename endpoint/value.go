package endpoint

import (
	"net/http"
	"reflect"
	"strconv"

	"github.com/mnehpets/callspec/codec"
)

// ValueRenderer encodes Value with Codec and writes it as the response
// body. Value is encoded as its dynamic type.
//
// If Status is 0, it defaults to http.StatusOK. If Codec is nil, JSON is
// used. Nothing is written when encoding fails.
type ValueRenderer struct {
	Status int
	Codec  codec.Codec
	Value  any
}

func (vr *ValueRenderer) Render(w http.ResponseWriter, _ *http.Request) error {
	c := vr.Codec
	if c == nil {
		c = codec.JSON{}
	}
	data, err := c.Marshal(vr.Value, reflect.TypeOf(vr.Value))
	if err != nil {
		return err
	}

	status := vr.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", c.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(status)
	_, err = w.Write(data)
	return err
}
