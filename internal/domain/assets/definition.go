package assets

// Definition is an already validated asset description handed over by a caller,
// for instance the scan command line. The set of implementations is closed.
type Definition interface {
	Kind() Kind
	isDefinition()
}

type NetworkDefinition struct {
	Ranges []IPRange
}

type UrlsDefinition struct {
	Links []Link
}

type AndroidStoreDefinition struct {
	PackageName     string
	ApplicationName string
}

type IosStoreDefinition struct {
	BundleID        string
	ApplicationName string
}

type AndroidFileDefinition struct {
	PackageName string
	Path        string
}

type IosFileDefinition struct {
	BundleID string
	Path     string
}

func (NetworkDefinition) Kind() Kind      { return KindNetwork }
func (UrlsDefinition) Kind() Kind         { return KindUrls }
func (AndroidStoreDefinition) Kind() Kind { return KindAndroidStore }
func (IosStoreDefinition) Kind() Kind     { return KindIosStore }
func (AndroidFileDefinition) Kind() Kind  { return KindAndroidFile }
func (IosFileDefinition) Kind() Kind      { return KindIosFile }

func (NetworkDefinition) isDefinition()      {}
func (UrlsDefinition) isDefinition()         {}
func (AndroidStoreDefinition) isDefinition() {}
func (IosStoreDefinition) isDefinition()     {}
func (AndroidFileDefinition) isDefinition()  {}
func (IosFileDefinition) isDefinition()      {}
