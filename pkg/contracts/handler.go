package contracts

import "github.com/julienschmidt/httprouter"

// Handler is anything that mounts routes on the shared router.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}
