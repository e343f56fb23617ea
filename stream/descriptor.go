package stream

// Descriptor is the static metadata of one stream type.
type Descriptor struct {
	Type Type
	// Property is the backend property selecting the active track.
	Property string
	Ext      ExtClass
	// Reserved is a backend track id held back from selection, -1 for none.
	Reserved int
	// Priority lists preferred languages, most preferred first.
	Priority []string
}

// Registry holds one descriptor per stream type.
type Registry [Count]Descriptor

// Descriptors returns the default registry.
func Descriptors() Registry {
	var r Registry
	r[Video] = Descriptor{Type: Video, Property: "vid", Ext: VideoExt, Reserved: -1}
	r[Audio] = Descriptor{Type: Audio, Property: "aid", Ext: AudioExt, Reserved: -1}
	r[Subtitle] = Descriptor{Type: Subtitle, Property: "sid", Ext: SubtitleExt, Reserved: -1}
	return r
}

// WithPriority returns a copy of the registry with a language priority for one type.
func (r Registry) WithPriority(t Type, langs []string) Registry {
	r[t].Priority = append([]string(nil), langs...)
	return r
}

// Get returns the descriptor of a type.
func (r Registry) Get(t Type) Descriptor {
	return r[t]
}

// ForProperty finds the descriptor whose backend property matches.
func (r Registry) ForProperty(property string) (Descriptor, bool) {
	for _, d := range r {
		if d.Property == property {
			return d, true
		}
	}
	return Descriptor{}, false
}
