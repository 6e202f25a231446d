package config

// BaseDocument returns the built-in base document used when no base file is
// given: rule mode, DNS with fake-ip, and a system TUN. The result is a
// fresh tree on every call; callers may mutate it freely.
func BaseDocument() map[string]any {
	return map[string]any{
		"mode":                "rule",
		"log-level":           "info",
		"ipv6":                false,
		"external-controller": "0.0.0.0:9090",
		"dns": map[string]any{
			"enable": true,
			"listen": "0.0.0.0:53",
			"ipv6":   false,
			"default-nameserver": []any{
				"223.5.5.5",
				"114.114.114.114",
			},
			"nameserver": []any{
				"223.5.5.5",
				"114.114.114.114",
				"119.29.29.29",
				"180.76.76.76",
			},
			"enhanced-mode": "fake-ip",
			"fake-ip-range": "198.18.0.1/16",
			"fake-ip-filter": []any{
				"*.lan",
				"*.localdomain",
				"*.example",
				"*.invalid",
				"*.localhost",
				"*.test",
				"*.local",
				"*.home.arpa",
				"router.asus.com",
				"localhost.sec.qq.com",
				"localhost.ptlogin2.qq.com",
				"+.msftconnecttest.com",
			},
		},
		"tun": map[string]any{
			"enable":                true,
			"stack":                 "system",
			"auto-route":            true,
			"auto-detect-interface": true,
			"dns-hijack": []any{
				"114.114.114.114",
				"180.76.76.76",
				"119.29.29.29",
				"223.5.5.5",
				"8.8.8.8",
				"8.8.4.4",
				"1.1.1.1",
				"1.0.0.1",
			},
		},
	}
}
