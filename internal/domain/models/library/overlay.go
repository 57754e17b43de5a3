package library

// Flag names a per-viewer boolean on a file.
type Flag string

const (
	FlagFavorite  Flag = "isFavorite"
	FlagPracticed Flag = "practiced"
)

// Overlay is the merged per-viewer state of a file. Absent values are false.
type Overlay struct {
	Practiced  bool `json:"practiced" doc:"practiced"`
	IsFavorite bool `json:"isFavorite" doc:"isFavorite"`
}

// OverlayPatch carries only the flags being changed.
type OverlayPatch struct {
	Practiced  *bool `json:"practiced,omitempty" doc:"practiced"`
	IsFavorite *bool `json:"isFavorite,omitempty" doc:"isFavorite"`
}

// PatchFor builds a single-flag patch.
func PatchFor(flag Flag, value bool) OverlayPatch {
	switch flag {
	case FlagFavorite:
		return OverlayPatch{IsFavorite: &value}
	case FlagPracticed:
		return OverlayPatch{Practiced: &value}
	default:
		return OverlayPatch{}
	}
}

// Merge returns p with every field set in next taking precedence.
func (p OverlayPatch) Merge(next OverlayPatch) OverlayPatch {
	if next.Practiced != nil {
		p.Practiced = next.Practiced
	}
	if next.IsFavorite != nil {
		p.IsFavorite = next.IsFavorite
	}
	return p
}

// Resolve fills absent flags with false.
func (p OverlayPatch) Resolve() Overlay {
	var o Overlay
	if p.Practiced != nil {
		o.Practiced = *p.Practiced
	}
	if p.IsFavorite != nil {
		o.IsFavorite = *p.IsFavorite
	}
	return o
}

func (p OverlayPatch) Data() map[string]any {
	data := map[string]any{}
	if p.Practiced != nil {
		data["practiced"] = *p.Practiced
	}
	if p.IsFavorite != nil {
		data["isFavorite"] = *p.IsFavorite
	}
	return data
}

// DecodeOverlayPatch reads a stored overlay, keeping absent flags nil.
func DecodeOverlayPatch(data map[string]any) (OverlayPatch, error) {
	var p OverlayPatch
	if err := decode(data, &p); err != nil {
		return OverlayPatch{}, err
	}
	return p, nil
}
