package console

import (
	"context"
	"fmt"
	"io"

	"github.com/travigo/busdelay/pkg/model"
	"github.com/travigo/busdelay/pkg/servicelookup"
)

func runServices(ctx context.Context, directory servicelookup.Directory, query string, sortBy string, out io.Writer) error {
	services, err := directory.GetServices(ctx, query)
	if err != nil {
		return err
	}

	switch sortBy {
	case "number":
		model.SortServicesByNumber(services)
	case "", "server":
	default:
		return fmt.Errorf("unknown sort order %q", sortBy)
	}

	for _, label := range model.ServiceLabels(services) {
		fmt.Fprintln(out, label)
	}

	return nil
}
