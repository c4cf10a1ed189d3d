package patch

import (
	"context"
	"os"

	"github.com/Abdallah-Tah/phpBuilder/pkg/fsops"
	"github.com/Abdallah-Tah/phpBuilder/pkg/layout"
)

// CopyMicro replaces source/php-src/sapi/micro with downloads/micro. It is a
// no-op, reporting false, when downloads/micro does not exist.
func CopyMicro(ctx context.Context, ops *fsops.Ops, tree layout.Tree) (bool, error) {
	src := tree.Downloads("micro")
	if info, err := os.Stat(src); err != nil || !info.IsDir() {
		return false, nil
	}
	dst := tree.Source("php-src", "sapi", "micro")
	if err := ops.CopyDir(ctx, src, dst); err != nil {
		return false, err
	}
	return true, nil
}
