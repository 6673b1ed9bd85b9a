// Package factory provides a small generic registry used to instantiate modules
// from configuration. Modules are defined by a type string and a map of raw
// settings. Factories decode the settings into typed structs and return the
// concrete implementation.
//
// Example usage:
//
//	reg := factory.NewRegistry[artifact.Publisher]()
//	reg.Register("file", func(conf map[string]any) (artifact.Publisher, error) {
//	    var c struct{ Dir string `json:"dir"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return publish.NewFilePublisher(c.Dir, nil), nil
//	})
//	p, err := reg.Create(factory.ModuleConfig{Type: "file", Conf: map[string]any{"dir": "out"}})
package factory
