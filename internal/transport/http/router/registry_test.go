package router

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type mod struct {
	name string
	prio int
	log  *[]string
}

func (m mod) MountAPI(*gin.RouterGroup)   { *m.log = append(*m.log, "api:"+m.name) }
func (m mod) MountAdmin(*gin.RouterGroup) { *m.log = append(*m.log, "admin:"+m.name) }
func (m mod) Priority() int               { return m.prio }

type apiOnly struct{ log *[]string }

func (a apiOnly) MountAPI(*gin.RouterGroup) { *a.log = append(*a.log, "api:plain") }

func TestRegistryOrdersByPriority(t *testing.T) {
	var log []string
	r := (&Registry{}).Register(
		mod{name: "late", prio: 200, log: &log},
		apiOnly{log: &log},
		mod{name: "early", prio: 1, log: &log},
	)
	g := gin.New().Group("/")
	r.MountAPI(g)
	r.MountAdmin(g)
	assert.Equal(t, []string{
		"api:early", "api:plain", "api:late",
		"admin:early", "admin:late",
	}, log)
}
