package filetypes

// FileType describes one accepted upload format.
type FileType struct {
	MIME        string   `yaml:"mime" json:"mime"`
	Label       string   `yaml:"label" json:"label"`
	Extensions  []string `yaml:"extensions" json:"extensions"`
	Viewable    bool     `yaml:"viewable" json:"viewable"`
	Convertible bool     `yaml:"convertible" json:"convertible"`
}

type registryFile struct {
	Types []FileType `yaml:"types"`
}
