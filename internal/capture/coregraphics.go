//go:build darwin

package capture

/*
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation
#include <CoreGraphics/CoreGraphics.h>
#include <CoreFoundation/CoreFoundation.h>
#include <dlfcn.h>
#include <stdint.h>
#include <stdlib.h>

typedef struct {
    uint32_t id;
    int      width;
    int      height;
    size_t   pixelWidth;
} DisplayInfo;

typedef struct {
    uint32_t windowID;
    int      pid;
    char     owner[128];
} WindowInfo;

typedef struct {
    void*  data;
    size_t size;
    int    width;
    int    height;
    size_t bytesPerRow;
} FrameData;

// CGWindowListCreateImageFromArray is unavailable in the macOS 15 SDK headers
// but still present in the CoreGraphics dylib. Load it dynamically.
typedef CGImageRef (*CGWindowListCreateImageFromArrayFunc)(
    CGRect screenBounds,
    CFArrayRef windowArray,
    uint32_t imageOption
);

static CGWindowListCreateImageFromArrayFunc getCreateImageFromArray(void) {
    static CGWindowListCreateImageFromArrayFunc fn = NULL;
    if (!fn) {
        fn = (CGWindowListCreateImageFromArrayFunc)dlsym(RTLD_DEFAULT, "CGWindowListCreateImageFromArray");
    }
    return fn;
}

static int listDisplays(DisplayInfo* out, int max) {
    CGDirectDisplayID ids[16];
    uint32_t count = 0;
    if (CGGetActiveDisplayList(16, ids, &count) != kCGErrorSuccess) {
        return -1;
    }

    CGDirectDisplayID mainID = CGMainDisplayID();
    int written = 0;
    // Main display first.
    for (int pass = 0; pass < 2; pass++) {
        for (uint32_t i = 0; i < count && written < max; i++) {
            int isMain = ids[i] == mainID;
            if ((pass == 0) != isMain) {
                continue;
            }
            CGRect b = CGDisplayBounds(ids[i]);
            size_t pw = 0;
            CGDisplayModeRef mode = CGDisplayCopyDisplayMode(ids[i]);
            if (mode) {
                pw = CGDisplayModeGetPixelWidth(mode);
                CGDisplayModeRelease(mode);
            }
            out[written].id = ids[i];
            out[written].width = (int)b.size.width;
            out[written].height = (int)b.size.height;
            out[written].pixelWidth = pw;
            written++;
        }
    }
    return written;
}

static int32_t numberValue(CFDictionaryRef d, CFStringRef key) {
    int32_t v = 0;
    CFNumberRef num = (CFNumberRef)CFDictionaryGetValue(d, key);
    if (num) {
        CFNumberGetValue(num, kCFNumberSInt32Type, &v);
    }
    return v;
}

static int listWindows(WindowInfo* out, int max, int onScreenOnly) {
    // kCGWindowListOptionAll = 0, kCGWindowListOptionOnScreenOnly = 1
    CFArrayRef list = CGWindowListCopyWindowInfo(onScreenOnly ? 1 : 0, kCGNullWindowID);
    if (!list) {
        return -1;
    }

    int written = 0;
    CFIndex n = CFArrayGetCount(list);
    for (CFIndex i = 0; i < n && written < max; i++) {
        CFDictionaryRef d = (CFDictionaryRef)CFArrayGetValueAtIndex(list, i);
        out[written].windowID = (uint32_t)numberValue(d, kCGWindowNumber);
        out[written].pid = (int)numberValue(d, kCGWindowOwnerPID);
        out[written].owner[0] = 0;
        CFStringRef name = (CFStringRef)CFDictionaryGetValue(d, kCGWindowOwnerName);
        if (name) {
            CFStringGetCString(name, out[written].owner, sizeof(out[written].owner), kCFStringEncodingUTF8);
        }
        written++;
    }
    CFRelease(list);
    return written;
}

static FrameData captureWindows(CGDirectDisplayID displayID, uint32_t* windowIDs, int count, int width, int height) {
    FrameData result = {0};

    CGWindowListCreateImageFromArrayFunc fn = getCreateImageFromArray();
    if (!fn || count <= 0) {
        return result;
    }

    // The window array holds CGWindowID values, not CF objects.
    const void** values = malloc(sizeof(void*) * count);
    if (!values) {
        return result;
    }
    for (int i = 0; i < count; i++) {
        values[i] = (const void*)(uintptr_t)windowIDs[i];
    }
    CFArrayRef windows = CFArrayCreate(NULL, values, count, NULL);
    free(values);
    if (!windows) {
        return result;
    }

    CGRect bounds = CGDisplayBounds(displayID);
    // kCGWindowImageDefault = 0
    CGImageRef image = fn(bounds, windows, 0);
    CFRelease(windows);
    if (!image) {
        return result;
    }

    result.width  = width;
    result.height = height;
    result.bytesPerRow = (size_t)width * 4;
    result.size        = result.bytesPerRow * (size_t)height;
    result.data        = malloc(result.size);
    if (!result.data) {
        CGImageRelease(image);
        result.size = 0;
        return result;
    }

    CGColorSpaceRef cs = CGColorSpaceCreateDeviceRGB();
    CGContextRef ctx = CGBitmapContextCreate(
        result.data,
        result.width,
        result.height,
        8,
        result.bytesPerRow,
        cs,
        kCGImageAlphaPremultipliedLast
    );
    CGContextDrawImage(ctx, CGRectMake(0, 0, result.width, result.height), image);
    CGContextRelease(ctx);
    CGColorSpaceRelease(cs);
    CGImageRelease(image);

    return result;
}

static void freeFrameData(void* data) {
    free(data);
}
*/
import "C"

import (
	"context"
	"fmt"
	"image"
	"os"
	"time"
	"unsafe"
)

const (
	maxDisplays = 16
	maxWindows  = 1024
)

// CGFacility implements Facility using CoreGraphics window lists.
// Applications are identified by owner name and PID; bundle identifiers are
// not available through this API. The cursor is never part of a window list
// image, so ShowCursor is ignored.
type CGFacility struct{}

// NewCGFacility returns a CoreGraphics facility.
func NewCGFacility() *CGFacility {
	return &CGFacility{}
}

type cgWindow struct {
	id    uint32
	pid   int
	owner string
}

func (f *CGFacility) ListShareableContent(ctx context.Context, excludeCurrentAppWindows, onScreenOnly bool) (*ShareableContent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var infos [maxDisplays]C.DisplayInfo
	n := int(C.listDisplays(&infos[0], maxDisplays))
	if n < 0 {
		return nil, fmt.Errorf("CGGetActiveDisplayList failed")
	}

	content := &ShareableContent{}
	for i := 0; i < n; i++ {
		d := Display{
			ID:          uint32(infos[i].id),
			Width:       int(infos[i].width),
			Height:      int(infos[i].height),
			ScaleFactor: 1,
		}
		if pw := int(infos[i].pixelWidth); pw > 0 && d.Width > 0 {
			d.ScaleFactor = float64(pw) / float64(d.Width)
		}
		content.Displays = append(content.Displays, d)
	}

	windows, err := listCGWindows(onScreenOnly)
	if err != nil {
		return nil, err
	}
	self := os.Getpid()
	seen := make(map[int]bool)
	for _, w := range windows {
		if seen[w.pid] || (excludeCurrentAppWindows && w.pid == self) {
			continue
		}
		seen[w.pid] = true
		content.Applications = append(content.Applications, Application{
			Name: w.owner,
			PID:  w.pid,
		})
	}
	return content, nil
}

func (f *CGFacility) CaptureImage(ctx context.Context, req *CaptureRequest) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.PixelFormat != PixelFormatRGBA {
		return nil, fmt.Errorf("unsupported pixel format %s", req.PixelFormat)
	}

	excluded := make(map[int]bool, len(req.ExcludedApps))
	for _, app := range req.ExcludedApps {
		excluded[app.PID] = true
	}

	windows, err := listCGWindows(true)
	if err != nil {
		return nil, err
	}
	ids := make([]C.uint32_t, 0, len(windows))
	for _, w := range windows {
		if excluded[w.pid] {
			continue
		}
		ids = append(ids, C.uint32_t(w.id))
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no windows left to capture")
	}

	fd := C.captureWindows(C.CGDirectDisplayID(req.Display.ID), &ids[0], C.int(len(ids)), C.int(req.Width), C.int(req.Height))
	if fd.data == nil {
		return nil, fmt.Errorf("CGWindowListCreateImageFromArray returned no image")
	}
	defer C.freeFrameData(fd.data)

	w := int(fd.width)
	h := int(fd.height)
	byteLen := int(fd.size)

	pix := make([]byte, byteLen)
	copy(pix, unsafe.Slice((*byte)(fd.data), byteLen))

	img := &image.RGBA{
		Pix:    pix,
		Stride: w * BytesPerPixel,
		Rect:   image.Rect(0, 0, w, h),
	}

	return &Frame{
		Image:     img,
		Width:     w,
		Height:    h,
		Format:    PixelFormatRGBA,
		Timestamp: time.Now(),
	}, nil
}

func listCGWindows(onScreenOnly bool) ([]cgWindow, error) {
	var infos [maxWindows]C.WindowInfo
	flag := C.int(0)
	if onScreenOnly {
		flag = 1
	}
	n := int(C.listWindows(&infos[0], maxWindows, flag))
	if n < 0 {
		return nil, fmt.Errorf("CGWindowListCopyWindowInfo failed")
	}
	out := make([]cgWindow, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, cgWindow{
			id:    uint32(infos[i].windowID),
			pid:   int(infos[i].pid),
			owner: C.GoString(&infos[i].owner[0]),
		})
	}
	return out, nil
}
