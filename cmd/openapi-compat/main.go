// Command openapi-compat fails when the API description compiled into the
// server drops a path, operation or response code that a published base
// document declares.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"

	"readit/docs"

	"gopkg.in/yaml.v3"
)

var httpMethods = []string{"get", "put", "post", "delete", "patch", "head", "options"}

type operation struct {
	Responses map[string]struct{}
}

type parsedSpec struct {
	Paths map[string]map[string]operation
}

type rawDocument struct {
	Paths map[string]map[string]yaml.Node `yaml:"paths"`
}

type rawOperation struct {
	Responses map[string]yaml.Node `yaml:"responses"`
}

func main() {
	basePath := flag.String("base", "", "published swagger document (JSON or YAML)")
	revisionPath := flag.String("revision", "", "document to check (default: the one built into the server)")
	flag.Parse()

	if err := run(*basePath, *revisionPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println("openapi compatibility check passed")
}

func run(basePath, revisionPath string) error {
	if strings.TrimSpace(basePath) == "" {
		return errors.New("usage: openapi-compat -base <path> [-revision <path>]")
	}
	base, err := loadSpec(basePath)
	if err != nil {
		return fmt.Errorf("base document: %w", err)
	}

	var revision parsedSpec
	if strings.TrimSpace(revisionPath) == "" {
		revision, err = parseSpec([]byte(docs.SwaggerInfo.ReadDoc()))
	} else {
		revision, err = loadSpec(revisionPath)
	}
	if err != nil {
		return fmt.Errorf("revision document: %w", err)
	}

	if issues := compare(base, revision); len(issues) > 0 {
		return fmt.Errorf("backward compatibility check failed:\n- %s", strings.Join(issues, "\n- "))
	}
	return nil
}

func loadSpec(path string) (parsedSpec, error) {
	// #nosec G304: operator supplied path
	raw, err := os.ReadFile(path)
	if err != nil {
		return parsedSpec{}, err
	}
	return parseSpec(raw)
}

// parseSpec keeps only HTTP operations and their response codes. JSON is
// valid YAML, so one decoder covers both encodings.
func parseSpec(raw []byte) (parsedSpec, error) {
	var doc rawDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return parsedSpec{}, err
	}
	if doc.Paths == nil {
		return parsedSpec{}, errors.New("document has no paths")
	}

	spec := parsedSpec{Paths: make(map[string]map[string]operation, len(doc.Paths))}
	for path, item := range doc.Paths {
		ops := make(map[string]operation)
		for key, node := range item {
			method := strings.ToLower(strings.TrimSpace(key))
			if !slices.Contains(httpMethods, method) {
				continue
			}
			var op rawOperation
			if err := node.Decode(&op); err != nil {
				return parsedSpec{}, fmt.Errorf("%s %s: %w", strings.ToUpper(method), path, err)
			}
			codes := make(map[string]struct{}, len(op.Responses))
			for code := range op.Responses {
				if code = strings.ToLower(strings.TrimSpace(code)); code != "" {
					codes[code] = struct{}{}
				}
			}
			ops[method] = operation{Responses: codes}
		}
		if len(ops) > 0 {
			spec.Paths[path] = ops
		}
	}
	return spec, nil
}

// compare lists what base declares and revision lacks, sorted.
func compare(base, revision parsedSpec) []string {
	var issues []string
	for path, baseOps := range base.Paths {
		revOps, ok := revision.Paths[path]
		if !ok {
			issues = append(issues, "removed path: "+path)
			continue
		}
		for method, baseOp := range baseOps {
			verb := strings.ToUpper(method)
			revOp, ok := revOps[method]
			if !ok {
				issues = append(issues, fmt.Sprintf("removed operation: %s %s", verb, path))
				continue
			}
			for code := range baseOp.Responses {
				if _, ok := revOp.Responses[code]; !ok {
					issues = append(issues, fmt.Sprintf("removed response code: %s %s -> %s", verb, path, strings.ToUpper(code)))
				}
			}
		}
	}
	slices.Sort(issues)
	return issues
}
