package llmjson

import (
	"encoding/json"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rotisserie/eris"
)

// Decode maps a recovered value onto target using the mapstructure tags.
// Scalars are converted loosely and nested objects or lists landing in a
// string field are re-encoded as JSON text. Extra hooks run first.
func Decode(value any, target any, hooks ...mapstructure.DecodeHookFunc) error {
	all := append(hooks, stringifyComposite)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(all...),
		WeaklyTypedInput: true,
		Result:           target,
		TagName:          "mapstructure",
	})
	if err != nil {
		return eris.Wrap(err, "llmjson: build decoder")
	}
	if err := dec.Decode(value); err != nil {
		return eris.Wrap(err, "llmjson: decode")
	}
	return nil
}

func stringifyComposite(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Map, reflect.Slice:
		b, err := json.Marshal(data)
		if err != nil {
			return data, nil
		}
		return string(b), nil
	}
	return data, nil
}
