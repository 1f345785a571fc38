package assets

// Kind is the discriminator stored on every base asset row.
type Kind string

const (
	KindNetwork      Kind = "network"
	KindUrls         Kind = "urls"
	KindAndroidStore Kind = "android_store"
	KindIosStore     Kind = "ios_store"
	KindAndroidFile  Kind = "android_file"
	KindIosFile      Kind = "ios_file"
)

// DefaultMethod is the HTTP method recorded for a link created without one.
const DefaultMethod = "GET"

// Asset is the base row shared by every variant. Variant rows carry the same ID.
type Asset struct {
	ID     int64  `json:"id"`
	Kind   Kind   `json:"type"`
	ScanID *int64 `json:"scan_id,omitempty"`
}

// IPRange is one host/mask pair owned by a Network asset.
type IPRange struct {
	ID             int64  `json:"id"`
	NetworkAssetID int64  `json:"network_asset_id"`
	Host           string `json:"host"`
	Mask           string `json:"mask"`
}

// Network is a set of IP ranges to scan.
type Network struct {
	Asset
	Networks []IPRange `json:"networks"`
}

// Link is one target URL owned by a Urls asset.
type Link struct {
	ID          int64  `json:"id"`
	UrlsAssetID int64  `json:"urls_asset_id"`
	URL         string `json:"url"`
	Method      string `json:"method"`
}

// Urls is a list of links to scan.
type Urls struct {
	Asset
	Links []Link `json:"links"`
}

type AndroidStore struct {
	Asset
	PackageName     string `json:"package_name"`
	ApplicationName string `json:"application_name"`
}

type IosStore struct {
	Asset
	BundleID        string `json:"bundle_id"`
	ApplicationName string `json:"application_name"`
}

type AndroidFile struct {
	Asset
	PackageName string `json:"package_name"`
	Path        string `json:"path"`
}

type IosFile struct {
	Asset
	BundleID string `json:"bundle_id"`
	Path     string `json:"path"`
}
