package graph

// LabelStyle maps a node label to the properties used for its caption and size.
type LabelStyle struct {
	Caption string `yaml:"caption" json:"caption"`
	Size    string `yaml:"size,omitempty" json:"size,omitempty"`
}

// RelationshipStyle maps a relationship type to its caption and thickness.
// When Caption is true the relationship type is used as caption.
type RelationshipStyle struct {
	Caption   bool   `yaml:"caption" json:"caption"`
	Thickness string `yaml:"thickness,omitempty" json:"thickness,omitempty"`
}

// DisplayConfig is the per-entity display mapping handed to a render surface.
type DisplayConfig struct {
	Labels        map[string]LabelStyle        `yaml:"labels" json:"labels"`
	Relationships map[string]RelationshipStyle `yaml:"relationships" json:"relationships"`
}

// DefaultDisplay returns the mapping for the devrank graph.
func DefaultDisplay() DisplayConfig {
	return DisplayConfig{
		Labels: map[string]LabelStyle{
			"User":     {Caption: "login", Size: "pagerank"},
			"Repo":     {Caption: "name"},
			"Language": {Caption: "name"},
		},
		Relationships: map[string]RelationshipStyle{
			"CONTRIBUTES": {Thickness: "count"},
			"KNOWS":       {Thickness: "size"},
			"CONTAINS":    {Thickness: "size"},
			"CODES_IN":    {Thickness: "size"},
		},
	}
}

// Merge overlays o on top of d; entries in o replace entries in d.
func (d DisplayConfig) Merge(o DisplayConfig) DisplayConfig {
	out := DisplayConfig{
		Labels:        make(map[string]LabelStyle, len(d.Labels)+len(o.Labels)),
		Relationships: make(map[string]RelationshipStyle, len(d.Relationships)+len(o.Relationships)),
	}
	for k, v := range d.Labels {
		out.Labels[k] = v
	}
	for k, v := range o.Labels {
		out.Labels[k] = v
	}
	for k, v := range d.Relationships {
		out.Relationships[k] = v
	}
	for k, v := range o.Relationships {
		out.Relationships[k] = v
	}
	return out
}

// StyleNode fills Caption and Size of n from its properties. The first label
// with a configured style wins; unstyled nodes are captioned with their id.
func (d DisplayConfig) StyleNode(n *Node) {
	for _, label := range n.Labels {
		style, ok := d.Labels[label]
		if !ok {
			continue
		}
		n.Label = label
		if v, ok := n.Properties[style.Caption]; ok {
			n.Caption = toCaption(v)
		}
		if style.Size != "" {
			n.Size = toNumber(n.Properties[style.Size])
		}
		return
	}
	if len(n.Labels) > 0 {
		n.Label = n.Labels[0]
	}
	n.Caption = n.ID
}

// StyleEdge fills Caption and Thickness of e from its properties.
func (d DisplayConfig) StyleEdge(e *Edge) {
	style, ok := d.Relationships[e.Type]
	if !ok {
		return
	}
	if style.Caption {
		e.Caption = e.Type
	}
	if style.Thickness != "" {
		e.Thickness = toNumber(e.Properties[style.Thickness])
	}
}
