//go:build linux
// +build linux

package v4l2

import (
	"bytes"
	"io"
	"syscall"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// A V4L2 character device.
type device struct {
	// Device path, usually "/dev/video0".
	path string

	// File descriptor of v4l2 device.
	fd int

	// Memory-mapped kernel buffers, indexed by buffer index.
	mmaps [][]byte
}

func openDevice(path string) (*device, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0666)
	if err != nil {
		return nil, err
	}

	return &device{
		path: path,
		fd:   fd,
	}, nil
}

func (dev *device) Close() error {
	if err := dev.stop(); err != nil {
		return err
	}

	return unix.Close(dev.fd)
}

func (dev *device) ioctl(request uint, arg unsafe.Pointer) error {
	for {
		_, _, errno := unix.Syscall(
			unix.SYS_IOCTL,
			uintptr(dev.fd),
			uintptr(request),
			uintptr(arg),
		)
		switch errno {
		case 0:
			return nil
		case unix.EINTR:
			continue
		default:
			return errno
		}
	}
}

// Check that the device is a streaming video capture device, and return its
// card name.
func (dev *device) queryCapabilities() (string, error) {
	var caps v4l2_capability
	if err := dev.ioctl(VIDIOC_QUERYCAP, unsafe.Pointer(&caps)); err != nil {
		return "", errors.Wrap(err, "VIDIOC_QUERYCAP")
	}

	c := caps.capabilities
	if c&V4L2_CAP_DEVICE_CAPS != 0 {
		c = caps.device_caps
	}
	if c&V4L2_CAP_VIDEO_CAPTURE == 0 {
		return "", errors.Errorf("%s is not a video capture device", dev.path)
	}
	if c&V4L2_CAP_STREAMING == 0 {
		return "", errors.Errorf("%s does not support streaming I/O", dev.path)
	}

	card := caps.card[:]
	if i := bytes.IndexByte(card, 0); i >= 0 {
		card = card[:i]
	}
	return string(card), nil
}

// Set the capture format. The driver may adjust it; the adjusted values are
// returned.
func (dev *device) setPixelFormat(width, height, format uint32) (v4l2_pix_format, error) {
	f := v4l2_format{typ: V4L2_BUF_TYPE_VIDEO_CAPTURE}
	*f.pix() = v4l2_pix_format{
		width:       width,
		height:      height,
		pixelformat: format,
		field:       V4L2_FIELD_NONE,
	}
	err := dev.ioctl(VIDIOC_S_FMT, unsafe.Pointer(&f))
	return *f.pix(), err
}

// Set the frame interval, if the driver supports it. Returns the frame rate
// in effect.
func (dev *device) setFrameRate(fps float64) (float64, error) {
	parm := v4l2_streamparm{typ: V4L2_BUF_TYPE_VIDEO_CAPTURE}
	if err := dev.ioctl(VIDIOC_G_PARM, unsafe.Pointer(&parm)); err != nil {
		return 0, err
	}

	cp := parm.capture()
	if cp.capability&V4L2_CAP_TIMEPERFRAME != 0 && fps > 0 {
		cp.timeperframe = v4l2_fract{numerator: 1000, denominator: uint32(fps * 1000)}
		if err := dev.ioctl(VIDIOC_S_PARM, unsafe.Pointer(&parm)); err != nil {
			return 0, err
		}
	}

	tpf := cp.timeperframe
	if tpf.numerator == 0 {
		return fps, nil
	}
	return float64(tpf.denominator) / float64(tpf.numerator), nil
}

func (dev *device) setControl(id uint32, value int32) error {
	ctrl := v4l2_control{id: id, value: value}
	return dev.ioctl(VIDIOC_S_CTRL, unsafe.Pointer(&ctrl))
}

// Query buffer parameters.
func (dev *device) queryBuffer(n uint32) (length, offset uint32, err error) {
	qb := v4l2_buffer{
		index:  n,
		typ:    V4L2_BUF_TYPE_VIDEO_CAPTURE,
		memory: V4L2_MEMORY_MMAP,
	}
	if err = dev.ioctl(VIDIOC_QUERYBUF, unsafe.Pointer(&qb)); err != nil {
		return
	}

	length = qb.length
	offset = nativeEndian.Uint32(qb.m[0:4])
	return
}

// Request specified number of kernel buffers memory-mapped to user-space.
// Returns the number the driver actually allocated.
func (dev *device) requestBuffers(n int) (int, error) {
	rb := v4l2_requestbuffers{
		count:  uint32(n),
		typ:    V4L2_BUF_TYPE_VIDEO_CAPTURE,
		memory: V4L2_MEMORY_MMAP,
	}
	err := dev.ioctl(VIDIOC_REQBUFS, unsafe.Pointer(&rb))
	return int(rb.count), err
}

func (dev *device) mapMemory(numBuffers int) error {
	if dev.mmaps != nil {
		panic("v4l2 device: memory already mapped")
	}

	n, err := dev.requestBuffers(numBuffers)
	if err != nil {
		return errors.Wrap(err, "VIDIOC_REQBUFS")
	}
	if n == 0 {
		return errors.Errorf("%s: no buffers allocated", dev.path)
	}

	for i := 0; i < n; i++ {
		length, offset, err := dev.queryBuffer(uint32(i))
		if err != nil {
			dev.unmapMemory()
			return errors.Wrap(err, "VIDIOC_QUERYBUF")
		}
		m, err := unix.Mmap(
			dev.fd,
			int64(offset),
			int(length),
			unix.PROT_READ|unix.PROT_WRITE,
			unix.MAP_SHARED,
		)
		if err != nil {
			dev.unmapMemory()
			return errors.Wrap(err, "mmap")
		}
		dev.mmaps = append(dev.mmaps, m)
	}
	return nil
}

func (dev *device) unmapMemory() error {
	for _, m := range dev.mmaps {
		if err := unix.Munmap(m); err != nil {
			return err
		}
	}
	dev.mmaps = nil

	_, err := dev.requestBuffers(0)
	return err
}

func (dev *device) enqueue(index int) error {
	qbuf := v4l2_buffer{
		typ:    V4L2_BUF_TYPE_VIDEO_CAPTURE,
		memory: V4L2_MEMORY_MMAP,
		index:  uint32(index),
	}
	return dev.ioctl(VIDIOC_QBUF, unsafe.Pointer(&qbuf))
}

func (dev *device) dequeue() (index, n int, err error) {
	dqbuf := v4l2_buffer{
		typ:    V4L2_BUF_TYPE_VIDEO_CAPTURE,
		memory: V4L2_MEMORY_MMAP,
	}
	err = dev.ioctl(VIDIOC_DQBUF, unsafe.Pointer(&dqbuf))
	return int(dqbuf.index), int(dqbuf.bytesused), err
}

func (dev *device) enableStream() error {
	typ := int32(V4L2_BUF_TYPE_VIDEO_CAPTURE)
	return dev.ioctl(VIDIOC_STREAMON, unsafe.Pointer(&typ))
}

func (dev *device) disableStream() error {
	// Disable stream (dequeues any outstanding buffers as well)
	typ := int32(V4L2_BUF_TYPE_VIDEO_CAPTURE)
	return dev.ioctl(VIDIOC_STREAMOFF, unsafe.Pointer(&typ))
}

// Start video capture.
func (dev *device) start(numBuffers int) error {
	if err := dev.mapMemory(numBuffers); err != nil {
		return err
	}

	for i := range dev.mmaps {
		if err := dev.enqueue(i); err != nil {
			dev.unmapMemory()
			return errors.Wrap(err, "VIDIOC_QBUF")
		}
	}

	return dev.enableStream()
}

// Stop video capture.
func (dev *device) stop() error {
	if dev.mmaps == nil {
		return nil
	}

	if err := dev.disableStream(); err != nil {
		return err
	}

	return dev.unmapMemory()
}

// Wait for a frame and copy it into p. Blocks until data is available.
func (dev *device) readFrame(p []byte) (int, error) {
	if dev.mmaps == nil {
		panic("v4l2 device: illegal state, capture not started")
	}

	index, n, err := dev.dequeue()
	if err != nil {
		if err == syscall.EINVAL {
			err = io.EOF
		}
		return 0, err
	}

	n = copy(p, dev.mmaps[index][:n])

	return n, dev.enqueue(index)
}
