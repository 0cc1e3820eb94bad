package catalog

import (
	"bufio"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/Blackdeer1524/HeapDB/src/storage/heapfile"
	"github.com/Blackdeer1524/HeapDB/src/tuple"
)

// LoadSchema reads a schema file and registers one table per line:
//
//	TableName (col type[, col type ...])
//
// Type tokens are "int" and "string", case-insensitive. A trailing "pk" on a
// column marks the primary key. Data files live next to the schema file as
// <TableName>.dat and are created empty when missing. Any invalid line
// aborts the load.
func (c *Catalog) LoadSchema(fs afero.Fs, schemaPath string) error {
	f, err := fs.Open(schemaPath)
	if err != nil {
		return fmt.Errorf("opening schema file: %w", err)
	}
	defer f.Close()

	baseDir := filepath.Dir(schemaPath)

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		name, desc, pkey, err := parseSchemaLine(line)
		if err != nil {
			return fmt.Errorf("schema line %d: %w", lineNo, err)
		}

		dataPath := filepath.Join(baseDir, name+".dat")
		exists, err := afero.Exists(fs, dataPath)
		if err != nil {
			return fmt.Errorf("checking data file %s: %w", dataPath, err)
		}
		if !exists {
			created, err := fs.Create(dataPath)
			if err != nil {
				return fmt.Errorf("creating data file %s: %w", dataPath, err)
			}
			_ = created.Close()
		}

		file, err := heapfile.New(dataPath, desc)
		if err != nil {
			return fmt.Errorf("schema line %d: %w", lineNo, err)
		}
		c.AddTable(file, name, pkey)
	}

	return scanner.Err()
}

func parseSchemaLine(line string) (string, *tuple.TupleDesc, string, error) {
	openIdx := strings.Index(line, "(")
	closeIdx := strings.LastIndex(line, ")")
	if openIdx < 0 || closeIdx < openIdx {
		return "", nil, "", fmt.Errorf("malformed table definition %q", line)
	}

	name := strings.TrimSpace(line[:openIdx])
	if name == "" {
		return "", nil, "", fmt.Errorf("missing table name in %q", line)
	}

	var (
		types []tuple.Type
		names []string
		pkey  string
	)
	for _, col := range strings.Split(line[openIdx+1:closeIdx], ",") {
		parts := strings.Fields(strings.TrimSpace(col))
		if len(parts) != 2 && len(parts) != 3 {
			return "", nil, "", fmt.Errorf("malformed column %q", col)
		}

		colName := parts[0]
		switch strings.ToLower(parts[1]) {
		case "int":
			types = append(types, tuple.IntType)
		case "string":
			types = append(types, tuple.StringType)
		default:
			return "", nil, "", fmt.Errorf("unknown column type %q", parts[1])
		}
		names = append(names, colName)

		if len(parts) == 3 {
			if strings.ToLower(parts[2]) != "pk" {
				return "", nil, "", fmt.Errorf("unknown column attribute %q", parts[2])
			}
			pkey = colName
		}
	}

	desc, err := tuple.NewTupleDesc(types, names)
	if err != nil {
		return "", nil, "", err
	}
	return name, desc, pkey, nil
}
