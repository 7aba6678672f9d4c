package config

import (
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
)

const DefaultEncoding = "Windows 1252"

var currentCharMap *charmap.Charmap = charmap.Windows1252

// SetEncoding selects the charmap used for fixed-size names inside binary records.
func SetEncoding(name string) error {
	cm, err := findEncoding(name)
	if err != nil {
		return err
	}
	currentCharMap = cm
	return nil
}

func findEncoding(name string) (*charmap.Charmap, error) {
	for _, enc := range charmap.All {
		if cm, ok := enc.(*charmap.Charmap); ok {
			if cm.String() == name {
				return cm, nil
			}
		}
	}
	return nil, errors.Errorf("Failed to find encoding %q, known: %s", name, strings.Join(ListEncodings(), ", "))
}

func ListEncodings() []string {
	list := make([]string, 0)
	for _, enc := range charmap.All {
		if cm, ok := enc.(*charmap.Charmap); ok {
			list = append(list, cm.String())
		}
	}
	return list
}

func GetEncoding() *charmap.Charmap {
	return currentCharMap
}
