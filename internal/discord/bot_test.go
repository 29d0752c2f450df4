package discord

import (
	"sync"
	"testing"

	"github.com/NgigiN/wallet/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectedFollowsGatewayState(t *testing.T) {
	bot, err := NewBot(config.DiscordConfig{Token: "token", ChannelID: "c1"}, nil, zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, bot.Connected())

	// the gateway goroutine flips DataReady under the session lock while health
	// checks poll it
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			bot.session.Lock()
			bot.session.DataReady = i%2 == 0
			bot.session.Unlock()
		}
	}()
	for i := 0; i < 100; i++ {
		bot.Connected()
	}
	wg.Wait()

	bot.session.Lock()
	bot.session.DataReady = true
	bot.session.Unlock()
	assert.True(t, bot.Connected())
}
