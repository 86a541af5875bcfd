package data

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const DownloadInfoFile = "download_info.txt"

// String renders the manifest in its on-disk form.
func (d DownloadInfo) String() string {
	orders := make([]string, len(d.Orders))
	for i, o := range d.Orders {
		orders[i] = strconv.Itoa(o)
	}
	return fmt.Sprintf("Comic name: %s\nComic Id: %s\nChapter name: %s\nChapter id: %s\nPages: %d\nOrders: [%s]",
		d.ComicName, d.ComicID, d.ChapterName, d.ChapterID, d.Pages, strings.Join(orders, ", "))
}

// PageFiles lists the page file names in display order.
func (d DownloadInfo) PageFiles() []string {
	orders := append([]int(nil), d.Orders...)
	sort.Ints(orders)
	files := make([]string, len(orders))
	for i, o := range orders {
		files[i] = PageFileName(o)
	}
	return files
}

func PageFileName(order int) string {
	return strconv.Itoa(order) + ".png"
}

func WriteDownloadInfo(dir string, info DownloadInfo) error {
	return os.WriteFile(filepath.Join(dir, DownloadInfoFile), []byte(info.String()), 0644)
}

func ReadDownloadInfo(dir string) (*DownloadInfo, error) {
	file, err := os.Open(filepath.Join(dir, DownloadInfoFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info := &DownloadInfo{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ": ")
		if !ok {
			continue
		}
		switch key {
		case "Comic name":
			info.ComicName = value
		case "Comic Id":
			info.ComicID = value
		case "Chapter name":
			info.ChapterName = value
		case "Chapter id":
			info.ChapterID = value
		case "Pages":
			if info.Pages, err = strconv.Atoi(value); err != nil {
				return nil, fmt.Errorf("invalid page count %q: %w", value, err)
			}
		case "Orders":
			if info.Orders, err = parseOrders(value); err != nil {
				return nil, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return info, nil
}

func parseOrders(value string) ([]int, error) {
	value = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(value), "["), "]")
	if strings.TrimSpace(value) == "" {
		return []int{}, nil
	}
	parts := strings.Split(value, ",")
	orders := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid order %q: %w", part, err)
		}
		orders[i] = n
	}
	return orders, nil
}
