package texture

import (
	"fmt"
	"strings"
)

// Property is one baked material channel.
type Property int

const (
	Diffuse Property = iota
	Normal
	Specular
	Roughness
	Metallic
	Emissive
	Opacity
)

var propertyNames = [...]string{
	Diffuse:   "diffuse",
	Normal:    "normal",
	Specular:  "specular",
	Roughness: "roughness",
	Metallic:  "metallic",
	Emissive:  "emissive",
	Opacity:   "opacity",
}

// AllProperties lists every property in declaration order.
var AllProperties = []Property{Diffuse, Normal, Specular, Roughness, Metallic, Emissive, Opacity}

func (p Property) String() string {
	if p >= 0 && int(p) < len(propertyNames) {
		return propertyNames[p]
	}
	return fmt.Sprintf("Property(%d)", int(p))
}

// ParseProperty accepts a property name in any case.
func ParseProperty(s string) (Property, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range propertyNames {
		if name == s {
			return Property(i), nil
		}
	}
	return 0, fmt.Errorf("texture: unknown property %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Property) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Property) UnmarshalText(b []byte) error {
	v, err := ParseProperty(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// IsColor reports whether the property holds color rather than a vector or
// scalar.
func (p Property) IsColor() bool {
	return p == Diffuse || p == Emissive || p == Specular
}

// DefaultValue is the value of a property a material does not define.
func (p Property) DefaultValue() LinearColor {
	switch p {
	case Diffuse:
		return Gray(0.5)
	case Normal:
		return LinearColor{0.5, 0.5, 1, 1}
	case Specular:
		return Gray(0.5)
	case Roughness:
		return Gray(0.5)
	case Metallic, Emissive:
		return Gray(0)
	default:
		return Gray(1)
	}
}

// MaterialSource yields the texture of one property of a source material.
// Implementations must be safe for concurrent use. A 1x1 image is a
// constant.
type MaterialSource interface {
	Channel(material int32, p Property) *Image
}

// StaticMaterials is an in-memory MaterialSource. It is not safe to modify
// while being sampled.
type StaticMaterials struct {
	channels map[int32]map[Property]*Image
	names    []string
}

// NewStaticMaterials returns an empty material table.
func NewStaticMaterials() *StaticMaterials {
	return &StaticMaterials{channels: make(map[int32]map[Property]*Image)}
}

// Add registers a named material and returns its id.
func (s *StaticMaterials) Add(name string) int32 {
	id := int32(len(s.names))
	s.names = append(s.names, name)
	s.channels[id] = make(map[Property]*Image)
	return id
}

// Lookup returns the id of a named material.
func (s *StaticMaterials) Lookup(name string) (int32, bool) {
	for i, n := range s.names {
		if n == name {
			return int32(i), true
		}
	}
	return -1, false
}

// Len returns the number of registered materials.
func (s *StaticMaterials) Len() int { return len(s.names) }

// Name returns the name of material id.
func (s *StaticMaterials) Name(id int32) string {
	if id < 0 || int(id) >= len(s.names) {
		return ""
	}
	return s.names[id]
}

// Set assigns img to property p of material id. Unknown ids are created.
func (s *StaticMaterials) Set(id int32, p Property, img *Image) {
	ch, ok := s.channels[id]
	if !ok {
		ch = make(map[Property]*Image)
		s.channels[id] = ch
	}
	ch[p] = img
}

// SetConstant assigns a constant value to property p of material id.
func (s *StaticMaterials) SetConstant(id int32, p Property, c LinearColor) {
	s.Set(id, p, Constant(c))
}

// defaultChannels holds one shared constant image per property. Callers
// sample them and must not write to them.
var defaultChannels = func() [len(propertyNames)]*Image {
	var d [len(propertyNames)]*Image
	for i := range d {
		d[i] = Constant(Property(i).DefaultValue())
	}
	return d
}()

// Channel implements MaterialSource. Missing materials and properties fall
// back to the shared property default.
func (s *StaticMaterials) Channel(material int32, p Property) *Image {
	if ch, ok := s.channels[material]; ok {
		if img, ok := ch[p]; ok && img != nil {
			return img
		}
	}
	if p >= 0 && int(p) < len(defaultChannels) {
		return defaultChannels[p]
	}
	return Constant(p.DefaultValue())
}
