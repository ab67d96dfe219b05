package vmix

// Blending is the shader parameter set used to composite a source. Color.A
// is the alpha derived from the Mixing position.
type Blending struct {
	Color Color     `json:"color"`
	Mode  BlendMode `json:"mode"`
	Mask  Mask      `json:"mask"`
}

// SourceCore is the part of a source shared by every producer kind: one
// transform node per view, a stored node for drags, and the blending and
// image processing parameter sets.
type SourceCore struct {
	nodes  [numViews]*TransformNode
	stored *TransformNode

	blending Blending

	// Exactly one of the two sets is active. Disabled processing keeps the
	// neutral set active and the configured one inactive.
	activeProcessing   ImageProcessing
	inactiveProcessing ImageProcessing
	processingEnabled  bool
}

func newSourceCore() SourceCore {
	c := SourceCore{
		stored:             NewTransformNode(),
		blending:           Blending{Color: ColorWhite, Mode: BlendNormal, Mask: DefaultMask()},
		activeProcessing:   NeutralProcessing(),
		inactiveProcessing: NeutralProcessing(),
	}
	for i := range c.nodes {
		c.nodes[i] = NewTransformNode()
	}
	return c
}

// Node returns the transform node of the given view.
func (c *SourceCore) Node(mode ViewMode) *TransformNode {
	if mode >= numViews {
		panic("vmix: invalid view mode")
	}
	return c.nodes[mode]
}

// StoreStatus copies the node of mode into the stored node. Interactive
// drags apply deltas to the stored node so results do not depend on frame
// timing.
func (c *SourceCore) StoreStatus(mode ViewMode) {
	c.stored.CopyFrom(c.Node(mode))
}

// StoredStatus returns the node saved by StoreStatus.
func (c *SourceCore) StoredStatus() *TransformNode { return c.stored }

// Blending returns the blending parameters.
func (c *SourceCore) Blending() Blending { return c.blending }

// BlendMode returns the compositing operation.
func (c *SourceCore) BlendMode() BlendMode { return c.blending.Mode }

// Mask returns the mask parameters.
func (c *SourceCore) Mask() Mask { return c.blending.Mask }

// ProcessingEnabled reports whether image processing is applied.
func (c *SourceCore) ProcessingEnabled() bool { return c.processingEnabled }

// Processing returns the set used for rendering: the configured parameters
// when enabled, the neutral set otherwise.
func (c *SourceCore) Processing() ImageProcessing { return c.activeProcessing }

// ConfiguredProcessing returns the user parameters whether or not they are
// currently active.
func (c *SourceCore) ConfiguredProcessing() ImageProcessing {
	if c.processingEnabled {
		return c.activeProcessing
	}
	return c.inactiveProcessing
}

// SetProcessing replaces the configured parameters. They become visible
// only while processing is enabled.
func (c *SourceCore) SetProcessing(p ImageProcessing) {
	if c.processingEnabled {
		c.activeProcessing = p
	} else {
		c.inactiveProcessing = p
	}
}

// SetProcessingEnabled swaps the active and inactive sets when the state
// changes.
func (c *SourceCore) SetProcessingEnabled(on bool) {
	if on == c.processingEnabled {
		return
	}
	c.activeProcessing, c.inactiveProcessing = c.inactiveProcessing, c.activeProcessing
	c.processingEnabled = on
}

// copyCoreFrom copies every node and parameter of other.
func (c *SourceCore) copyCoreFrom(other *SourceCore) {
	for i := range c.nodes {
		c.nodes[i].CopyFrom(other.nodes[i])
		c.nodes[i].MarkDirty()
	}
	c.blending = other.blending
	c.blending.Mask.Image = append([]byte(nil), other.blending.Mask.Image...)
	c.blending.Mask.Strokes = append([]PaintStroke(nil), other.blending.Mask.Strokes...)
	c.activeProcessing = other.activeProcessing
	c.inactiveProcessing = other.inactiveProcessing
	c.processingEnabled = other.processingEnabled
}
