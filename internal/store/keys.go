package store

import "fmt"

// Key layout:
//   <prefix>doc:{<id>}   encoded document (string)
//   <prefix>docs         ids of stored documents (set)

const (
	keyDocFmt  = "%sdoc:{%s}"
	keyDocsFmt = "%sdocs"
)

func docKey(prefix, id string) string { return fmt.Sprintf(keyDocFmt, prefix, id) }
func docsKey(prefix string) string    { return fmt.Sprintf(keyDocsFmt, prefix) }
