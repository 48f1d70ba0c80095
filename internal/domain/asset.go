package domain

// AssetSet is the normalized result attached to a completed job. It is either
// a SingleAsset or a MultiAsset.
type AssetSet interface {
	// Primary returns the first asset and its thumbnail, which are also
	// written to the single-asset columns for older consumers.
	Primary() (url, thumbnail string)
	// Len returns the number of assets in the set.
	Len() int
	assetSet()
}

// SingleAsset is a one-asset result.
type SingleAsset struct {
	URL       string
	Thumbnail string
}

func (a SingleAsset) Primary() (string, string) { return a.URL, a.Thumbnail }

func (a SingleAsset) Len() int {
	if a.URL == "" {
		return 0
	}
	return 1
}

func (SingleAsset) assetSet() {}

// MultiAsset holds parallel asset and thumbnail lists. Thumbnails is either
// empty or the same length as URLs.
type MultiAsset struct {
	URLs       []string
	Thumbnails []string
}

func (a MultiAsset) Primary() (string, string) {
	var url, thumb string
	if len(a.URLs) > 0 {
		url = a.URLs[0]
	}
	if len(a.Thumbnails) > 0 {
		thumb = a.Thumbnails[0]
	}
	return url, thumb
}

func (a MultiAsset) Len() int { return len(a.URLs) }

func (MultiAsset) assetSet() {}

var (
	_ AssetSet = SingleAsset{}
	_ AssetSet = MultiAsset{}
)
