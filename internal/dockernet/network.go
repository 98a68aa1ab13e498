// Package dockernet creates and tears down the Docker resources a sandbox
// lives in: an isolated bridge network and the labeled containers, volumes,
// and networks that belong to it.
package dockernet

import (
	"context"
	"fmt"
	"net"

	"github.com/docker/docker/api/types/network"
	dockerclient "github.com/moby/moby/client"

	"github.com/sandboxtools/nodebox/internal/container"
)

// CreateNetwork creates an isolated bridge network for a sandbox, picking a
// subnet that does not collide with any network already present.
func CreateNetwork(ctx context.Context, cli *dockerclient.Client, name, sandboxName string) (string, error) {
	usedSubnets, err := getUsedSubnets(ctx, cli)
	if err != nil {
		return "", fmt.Errorf("getting used subnets: %w", err)
	}
	subnet, err := findAvailableSubnet("172.29.0.0/16", usedSubnets)
	if err != nil {
		return "", fmt.Errorf("finding an available subnet: %w", err)
	}

	created, err := cli.NetworkCreate(ctx, name, network.CreateOptions{
		Driver: "bridge",
		IPAM: &network.IPAM{
			Config: []network.IPAMConfig{
				{Subnet: subnet},
			},
		},
		Labels: map[string]string{container.CleanupLabelKey: sandboxName},
	})
	if err != nil {
		return "", fmt.Errorf("creating docker network: %w", err)
	}
	return created.ID, nil
}

// FindNetwork returns the ID of an existing network with the given name, or
// "" if none exists.
func FindNetwork(ctx context.Context, cli *dockerclient.Client, name string) (string, error) {
	networks, err := cli.NetworkList(ctx, network.ListOptions{})
	if err != nil {
		return "", fmt.Errorf("listing networks: %w", err)
	}
	for _, n := range networks {
		if n.Name == name {
			return n.ID, nil
		}
	}
	return "", nil
}

func getUsedSubnets(ctx context.Context, cli *dockerclient.Client) (map[string]bool, error) {
	usedSubnets := make(map[string]bool)
	networks, err := cli.NetworkList(ctx, network.ListOptions{})
	if err != nil {
		return nil, err
	}

	for _, net := range networks {
		for _, config := range net.IPAM.Config {
			if config.Subnet != "" {
				usedSubnets[config.Subnet] = true
			}
		}
	}
	return usedSubnets, nil
}

func findAvailableSubnet(baseSubnet string, usedSubnets map[string]bool) (string, error) {
	ip, ipNet, err := net.ParseCIDR(baseSubnet)
	if err != nil {
		return "", fmt.Errorf("invalid base subnet: %v", err)
	}

	for {
		if isSubnetUsed(ipNet.String(), usedSubnets) {
			incrementIP(ip, 2)
			ipNet.IP = ip
			continue
		}

		for subIP := ip.Mask(ipNet.Mask); ipNet.Contains(subIP); incrementIP(subIP, 1) {
			subnet := fmt.Sprintf("%s/24", subIP)

			if !isSubnetUsed(subnet, usedSubnets) {
				return subnet, nil
			}
		}

		incrementIP(ip, 2)
		ipNet.IP = ip
	}
}

func isSubnetUsed(subnet string, usedSubnets map[string]bool) bool {
	_, targetNet, err := net.ParseCIDR(subnet)
	if err != nil {
		return true
	}

	for usedSubnet := range usedSubnets {
		_, usedNet, err := net.ParseCIDR(usedSubnet)
		if err != nil {
			continue
		}

		if usedNet.Contains(targetNet.IP) || targetNet.Contains(usedNet.IP) {
			return true
		}
	}
	return false
}

func incrementIP(ip net.IP, incrementLevel int) {
	for j := len(ip) - incrementLevel; j >= 0; j-- {
		ip[j]++
		if ip[j] > 0 {
			break
		}
	}
}
