package frontend

import (
	"fmt"
	"go/ast"
	"go/token"
	"os"
	"path/filepath"
	"strings"

	gopackages "golang.org/x/tools/go/packages"

	"pipesynth/internal/diag"
	"pipesynth/internal/ir"
	"pipesynth/internal/validate"
)

// LoadConfig configures how Go sources are loaded.
type LoadConfig struct {
	Sources   []string
	BuildTags []string
	// Function names the function to synthesize. Empty selects the first
	// function declared in the sources.
	Function string
}

// LoadPackages loads the package containing the requested source files with
// full syntax and type information.
func LoadPackages(cfg LoadConfig, reporter *diag.Reporter) ([]*gopackages.Package, *token.FileSet, error) {
	if len(cfg.Sources) == 0 {
		return nil, nil, fmt.Errorf("no source files were provided")
	}

	fset := token.NewFileSet()
	buildFlags := buildTagFlag(cfg.BuildTags)

	dir := workingDir(cfg.Sources[0])
	if dir != "" {
		if absDir, err := filepath.Abs(dir); err == nil {
			dir = absDir
		}
	}

	goCache, goModCache := localCacheDirs()
	env := append(os.Environ(),
		"GOCACHE="+goCache,
		"GOMODCACHE="+goModCache,
	)

	loadCfg := &gopackages.Config{
		Mode:  gopackages.NeedName | gopackages.NeedSyntax | gopackages.NeedFiles | gopackages.NeedCompiledGoFiles | gopackages.NeedTypes | gopackages.NeedTypesInfo,
		Fset:  fset,
		Env:   env,
		Tests: false,
	}
	if dir != "" {
		loadCfg.Dir = dir
	}
	if len(buildFlags) > 0 {
		loadCfg.BuildFlags = buildFlags
	}

	pkgs, err := gopackages.Load(loadCfg, ".")
	if err != nil {
		return nil, nil, err
	}

	reporter.SetFileSet(fset)

	var hadErrors bool
	for _, pkg := range pkgs {
		for _, loadErr := range pkg.Errors {
			reporter.Errorf("%s: %s", loadErr.Pos, loadErr.Msg)
			hadErrors = true
		}
	}
	if hadErrors {
		return nil, nil, fmt.Errorf("package loading failed")
	}
	return pkgs, fset, nil
}

// LoadGo loads the Go package of cfg.Sources, validates the selected
// function and converts it to a program.
func LoadGo(cfg LoadConfig, reporter *diag.Reporter) (*ir.Program, error) {
	pkgs, fset, err := LoadPackages(cfg, reporter)
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(cfg.Sources))
	for _, src := range cfg.Sources {
		if abs, err := filepath.Abs(src); err == nil {
			wanted[abs] = true
		}
	}
	for _, pkg := range pkgs {
		for _, file := range pkg.Syntax {
			name := fset.Position(file.Pos()).Filename
			if len(wanted) > 0 && !wanted[name] {
				continue
			}
			decl := findFunc(file, cfg.Function)
			if decl == nil {
				continue
			}
			if err := validate.CheckFunction(decl, pkg.TypesInfo, reporter); err != nil {
				return nil, err
			}
			return ConvertFunc(decl, pkg.TypesInfo, programName(name))
		}
	}
	if cfg.Function != "" {
		return nil, diag.Errorf(diag.ErrStructural, cfg.Function, "function not found in sources")
	}
	return nil, diag.Errorf(diag.ErrStructural, "", "expecting function in sources")
}

func findFunc(file *ast.File, name string) *ast.FuncDecl {
	for _, d := range file.Decls {
		fd, ok := d.(*ast.FuncDecl)
		if !ok || fd.Body == nil {
			continue
		}
		if name == "" || fd.Name.Name == name {
			return fd
		}
	}
	return nil
}

func buildTagFlag(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	joined := strings.Join(tags, ",")
	if joined == "" {
		return nil
	}
	return []string{"-tags=" + joined}
}

func workingDir(sample string) string {
	if sample == "" {
		return ""
	}
	dir := filepath.Dir(sample)
	if dir == "." {
		return ""
	}
	return dir
}

func localCacheDirs() (string, string) {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	root := filepath.Join(cwd, ".cache")
	goCache := filepath.Join(root, "go-build")
	goModCache := filepath.Join(root, "gomod")
	_ = os.MkdirAll(goCache, 0o755)
	_ = os.MkdirAll(goModCache, 0o755)
	return goCache, goModCache
}
