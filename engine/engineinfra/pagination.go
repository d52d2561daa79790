package engineinfra

import "github.com/Abraxas-365/craftable/storex"

// paginated arma la respuesta de List; storex espera (data, page, size, total)
func paginated[T any](items []T, page, pageSize, total int) storex.Paginated[T] {
	return storex.NewPaginated(items, page, pageSize, total)
}
