package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLatestPerShop(t *testing.T) {
	batch := [][]byte{
		[]byte(`{"type":"panier","boutique_id":5,"panier":{"nombre_articles":1}}`),
		[]byte(`{"type":"panier","boutique_id":6,"panier":{"nombre_articles":4}}`),
		[]byte(`garbage`),
		[]byte(`{"type":"panier","boutique_id":5,"panier":{"nombre_articles":2}}`),
	}

	got := latestPerShop(batch)

	assert.Equal(t, [][]byte{batch[1], batch[2], batch[3]}, got)
}

func TestLatestPerShop_Single(t *testing.T) {
	batch := [][]byte{[]byte(`{"boutique_id":5}`)}
	assert.Equal(t, batch, latestPerShop(batch))
}

func TestDrain(t *testing.T) {
	send := make(chan []byte, 4)
	send <- []byte("b")
	send <- []byte("c")

	batch, open := drain([]byte("a"), send)
	assert.True(t, open)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, batch)

	send <- []byte("d")
	close(send)
	batch, open = drain([]byte("x"), send)
	assert.Len(t, batch, 2)
	assert.True(t, open, "the close is seen on the next receive")
}
