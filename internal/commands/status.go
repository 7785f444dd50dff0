package commands

import (
	"fmt"
	"runtime"
	"time"

	"github.com/Elliesaur/DiscordEventLogger/internal/metrics"

	"github.com/bwmarrin/discordgo"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

var botStartTime = time.Now()

// status reports bot health: uptime, routing counters, and host resource
// usage.
func (h *Handler) status(s *discordgo.Session, m *discordgo.MessageCreate) error {
	embed := &discordgo.MessageEmbed{
		Title:     "Event Logger Status",
		Color:     0x00BFFF,
		Timestamp: time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "Bot",
				Value: fmt.Sprintf("**Uptime:** `%s`\n**Guilds:** `%d`\n**Latency:** `%dms`",
					formatDuration(time.Since(botStartTime)),
					len(s.State.Guilds),
					s.HeartbeatLatency().Milliseconds()),
				Inline: true,
			},
			{
				Name:   "Counters",
				Value:  "```\n" + metrics.Get().Export() + "```",
				Inline: false,
			},
		},
	}

	if hostInfo, err := host.Info(); err == nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Host",
			Value: fmt.Sprintf("**OS:** `%s`\n**Uptime:** `%s`",
				hostInfo.OS,
				formatDuration(time.Duration(hostInfo.Uptime)*time.Second)),
			Inline: true,
		})
	}

	if cpuPercent, err := cpu.Percent(time.Second, false); err == nil && len(cpuPercent) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "CPU",
			Value:  fmt.Sprintf("**Usage:** `%.2f%%`\n%s", cpuPercent[0], createProgressBar(cpuPercent[0], 100)),
			Inline: true,
		})
	}

	if memInfo, err := mem.VirtualMemory(); err == nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Memory",
			Value: fmt.Sprintf("**Used:** `%s` of `%s` (`%.2f%%`)\n%s",
				formatBytes(memInfo.Used),
				formatBytes(memInfo.Total),
				memInfo.UsedPercent,
				createProgressBar(memInfo.UsedPercent, 100)),
			Inline: true,
		})
	}

	var rt runtime.MemStats
	runtime.ReadMemStats(&rt)
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name: "Go Runtime",
		Value: fmt.Sprintf("**Version:** `%s`\n**Goroutines:** `%d`\n**Allocated:** `%s`",
			runtime.Version(),
			runtime.NumGoroutine(),
			formatBytes(rt.Alloc)),
		Inline: true,
	})

	_, err := s.ChannelMessageSendEmbed(m.ChannelID, embed)
	return err
}

func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

func createProgressBar(value, max float64) string {
	percent := (value / max) * 100
	filled := int(percent / 10)
	if filled > 10 {
		filled = 10
	}

	bar := ""
	for i := 0; i < filled; i++ {
		bar += "█"
	}
	for i := filled; i < 10; i++ {
		bar += "░"
	}
	return "`" + bar + "`"
}
