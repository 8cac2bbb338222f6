// Package schema compiles the CP-SAT protocol schemas into Go bindings with
// protoc and verifies what was produced.
package schema

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goplus/cpsat/pkgs/buildsys"
	"golang.org/x/mod/semver"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
)

// MinProtocVersion is the oldest protoc accepting proto3 optional fields.
const MinProtocVersion = "v3.12.0"

// ErrProtocTooOld is returned when protoc is older than MinProtocVersion.
var ErrProtocTooOld = errors.New("protoc is too old")

// Compiler drives protoc. The zero value runs "protoc" from PATH.
type Compiler struct {
	Protoc string
	Run    buildsys.Runner
}

// Options describes one schema compilation.
type Options struct {
	// Files are the schema sources, each under Include.
	Files   []string
	Include string
	// OutDir receives the generated .pb.go files.
	OutDir string
	// GoPackage overrides the Go import path of every file when set.
	GoPackage string
}

// Result reports the compiled schemas.
type Result struct {
	Files     []string `json:"files"`
	Messages  []string `json:"messages"`
	Generated []string `json:"generated"`
	Version   string   `json:"version"`
}

func (c *Compiler) protoc() string {
	if c.Protoc == "" {
		return "protoc"
	}
	return c.Protoc
}

// Version returns the protoc version in semver form, e.g. "v3.21.12".
func (c *Compiler) Version(ctx context.Context) (string, error) {
	lines, err := buildsys.Run(ctx, c.Run, c.protoc(), []string{"--version"}, nil)
	if err != nil {
		return "", err
	}
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 2 && fields[0] == "libprotoc" {
			v := "v" + fields[1]
			if !semver.IsValid(v) {
				break
			}
			return v, nil
		}
	}
	return "", fmt.Errorf("unrecognized protoc version output %q", strings.Join(lines, "\n"))
}

// CheckVersion fails with ErrProtocTooOld when protoc predates MinProtocVersion.
func (c *Compiler) CheckVersion(ctx context.Context) (string, error) {
	v, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	if semver.Compare(v, MinProtocVersion) < 0 {
		return v, fmt.Errorf("%w: found %s, need %s or newer", ErrProtocTooOld, v, MinProtocVersion)
	}
	return v, nil
}

// Compile generates Go code for opts.Files and loads the resulting
// descriptors to confirm they link.
func (c *Compiler) Compile(ctx context.Context, opts Options) (*Result, error) {
	if len(opts.Files) == 0 {
		return nil, errors.New("no schema files")
	}
	for _, f := range opts.Files {
		if _, err := os.Stat(f); err != nil {
			return nil, err
		}
	}
	version, err := c.CheckVersion(ctx)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, err
	}

	tmp, err := os.MkdirTemp("", "cpsat-schema")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmp)
	descSet := filepath.Join(tmp, "descriptor.pb")

	rels, err := relNames(opts.Include, opts.Files)
	if err != nil {
		return nil, err
	}
	args := []string{
		"-I", opts.Include,
		"--go_out=" + opts.OutDir,
		"--go_opt=paths=source_relative",
	}
	if opts.GoPackage != "" {
		for _, rel := range rels {
			args = append(args, "--go_opt=M"+rel+"="+opts.GoPackage)
		}
	}
	args = append(args, "--include_imports", "--descriptor_set_out="+descSet)
	args = append(args, opts.Files...)
	if _, err := buildsys.Run(ctx, c.Run, c.protoc(), args, nil); err != nil {
		return nil, err
	}

	res, err := loadDescriptorSet(descSet)
	if err != nil {
		return nil, fmt.Errorf("load descriptors: %w", err)
	}
	res.Version = version
	for _, rel := range rels {
		res.Generated = append(res.Generated, filepath.Join(opts.OutDir, strings.TrimSuffix(rel, ".proto")+".pb.go"))
	}
	return res, nil
}

func relNames(include string, files []string) ([]string, error) {
	rels := make([]string, len(files))
	for i, f := range files {
		rel, err := filepath.Rel(include, f)
		if err != nil || strings.HasPrefix(rel, "..") {
			return nil, fmt.Errorf("%s is not under include dir %s", f, include)
		}
		rels[i] = filepath.ToSlash(rel)
	}
	return rels, nil
}

func loadDescriptorSet(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fds := new(descriptorpb.FileDescriptorSet)
	if err := proto.Unmarshal(data, fds); err != nil {
		return nil, err
	}
	files, err := protodesc.NewFiles(fds)
	if err != nil {
		return nil, err
	}
	res := &Result{}
	for _, fdp := range fds.GetFile() {
		fd, err := files.FindFileByPath(fdp.GetName())
		if err != nil {
			return nil, err
		}
		res.Files = append(res.Files, fd.Path())
		res.Messages = appendMessages(res.Messages, fd.Messages())
	}
	return res, nil
}

func appendMessages(names []string, msgs protoreflect.MessageDescriptors) []string {
	for i := 0; i < msgs.Len(); i++ {
		md := msgs.Get(i)
		if md.IsMapEntry() {
			continue
		}
		names = append(names, string(md.FullName()))
		names = appendMessages(names, md.Messages())
	}
	return names
}
