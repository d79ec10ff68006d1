package domain

// TestFile represents a parsed PHP test file.
type TestFile struct {
	// Language is the programming language of this file.
	Language Language `json:"language"`
	// Nodes contains the top-level namespace and class nodes in source order.
	Nodes []*TestNode `json:"nodes,omitempty"`
	// Path is the absolute file path.
	Path string `json:"path"`
}

// CountTests returns the total number of test methods in this file.
func (f *TestFile) CountTests() int {
	count := 0
	for _, n := range f.Nodes {
		count += n.CountTests()
	}
	return count
}

// Inventory represents a collection of test files in a workspace.
type Inventory struct {
	// Files contains all parsed test files, sorted by path.
	Files []TestFile `json:"files"`
	// RootPath is the root directory path of the scanned workspace.
	RootPath string `json:"rootPath"`
}

// CountTests returns the total number of tests across all files.
func (inv Inventory) CountTests() int {
	count := 0
	for _, f := range inv.Files {
		count += f.CountTests()
	}
	return count
}

// Paths returns the path of every file in the inventory.
func (inv Inventory) Paths() []string {
	paths := make([]string, 0, len(inv.Files))
	for _, f := range inv.Files {
		paths = append(paths, f.Path)
	}
	return paths
}
